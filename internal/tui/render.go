package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hersh/blockfall/internal/game"
)

var (
	// Indexed by game.Color.
	colors = []string{
		"0",
		"226", // yellow
		"51",  // cyan
		"208", // orange
		"201", // purple
		"196", // red
	}

	flashColor = "15"

	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("15"))

	infoStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("15"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51"))

	gameOverStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	fastStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))
)

func colorCode(c game.Color) string {
	if int(c) < 0 || int(c) >= len(colors) {
		return "248"
	}
	return colors[c]
}

// flashCell is a cleared block still playing its effect.
type flashCell struct {
	Pos   game.Position
	Color game.Color
}

// RenderBoard draws the snapshot. Cells in flashing are drawn on top and
// blink with lit.
func RenderBoard(snap game.Snapshot, flashing []flashCell, lit bool) string {
	overlay := make(map[game.Position]game.Color, len(flashing))
	for _, f := range flashing {
		overlay[f.Pos] = f.Color
	}

	var sb strings.Builder
	for y := 0; y < game.BoardHeight; y++ {
		for x := 0; x < game.BoardWidth; x++ {
			pos := game.Position{Row: y, Col: x}
			char := "  "
			color := "0"

			if c := snap.At(pos); c != game.ColorNone {
				char = "██"
				color = colorCode(c)
			}
			if c, ok := overlay[pos]; ok {
				char = "▓▓"
				color = colorCode(c)
				if lit {
					color = flashColor
				}
			}

			sb.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(color)).
				Render(char))
		}
		if y < game.BoardHeight-1 {
			sb.WriteString("\n")
		}
	}

	return boardStyle.Render(sb.String())
}

// RenderPiece draws a kind's spawn layout, trimmed to its bounding box.
func RenderPiece(k game.Kind) string {
	cells := game.SpawnPositions(k)
	minRow, maxRow := cells[0].Row, cells[0].Row
	minCol, maxCol := cells[0].Col, cells[0].Col
	filled := make(map[game.Position]bool, len(cells))
	for _, c := range cells {
		filled[c] = true
		minRow, maxRow = min(minRow, c.Row), max(maxRow, c.Row)
		minCol, maxCol = min(minCol, c.Col), max(maxCol, c.Col)
	}

	color := colorCode(game.NewPiece(k).Color())
	pieceStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color))

	var sb strings.Builder
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			if filled[game.Position{Row: r, Col: c}] {
				sb.WriteString(pieceStyle.Render("██"))
			} else {
				sb.WriteString("  ")
			}
		}
		if r < maxRow {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func RenderInfo(name string, snap game.Snapshot) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("BLOCKFALL") + "\n\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Player: %s", name)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Score: %d", snap.Score)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Lines: %d", snap.Lines)) + "\n\n")

	sb.WriteString(titleStyle.Render("NEXT") + "\n")
	sb.WriteString(RenderPiece(snap.Next) + "\n")

	if snap.FastDrop {
		sb.WriteString("\n" + fastStyle.Render("DROPPING") + "\n")
	}
	sb.WriteString(RenderControls())

	return sb.String()
}

func RenderWelcome() string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("51")).
		Align(lipgloss.Center).
		Render(`
╔══════════════════════════════╗
║       B L O C K F A L L      ║
╚══════════════════════════════╝

   Press ENTER or N to start
   Press Q to quit
`)
}

func RenderGameOver(score, lines int) string {
	return gameOverStyle.
		Align(lipgloss.Center).
		Render(fmt.Sprintf("\n\n\n     GAME OVER     \n     Score: %d     \n     Lines: %d     \n\n\n", score, lines))
}

func RenderControls() string {
	return infoStyle.Render(`
Controls:
  ← →    Move left/right
  ↓      Soft drop
  ↑/X    Rotate
  N      New game
  Q      Quit
`)
}
