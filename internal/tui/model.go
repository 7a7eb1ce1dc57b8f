package tui

import (
	"encoding/json"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hersh/blockfall/internal/game"
	"github.com/hersh/blockfall/internal/netclient"
	"github.com/hersh/blockfall/internal/protocol"
)

// FlashDuration is how long a cleared row blinks before it collapses.
const FlashDuration = 500 * time.Millisecond

// --- Custom tea.Msg types ---

type TickMsg time.Time

// GameTickMsg advances the local engine. Ticks from an older generation
// belong to a timer that was replaced and are dropped.
type GameTickMsg struct {
	gen int
}

// FlashDoneMsg reports that every cell of a clear batch finished flashing.
type FlashDoneMsg struct {
	BatchID int
}

// --- Screens and modes ---

type Screen int

const (
	ScreenConnecting Screen = iota
	ScreenWelcome
	ScreenPlaying
	ScreenGameOver
)

type GameMode int

const (
	ModeLocal GameMode = iota
	ModeRemote
)

// --- Model ---

type Model struct {
	screen     Screen
	mode       GameMode
	playerName string
	width      int
	height     int

	// Local play
	cfg     game.Config
	engine  *game.Engine
	tickGen int

	// Remote play
	client    netclient.Sender
	sessionID string

	snap    game.Snapshot
	flashes map[int][]flashCell
	lit     bool

	err          error
	disconnected bool
}

// NewModel creates a model for the client TUI.
// If client is nil the game runs on a local engine built from cfg.
func NewModel(playerName string, cfg game.Config, client netclient.Sender) Model {
	m := Model{
		screen:     ScreenWelcome,
		mode:       ModeLocal,
		playerName: playerName,
		cfg:        cfg,
		client:     client,
		flashes:    make(map[int][]flashCell),
		snap:       game.NewEngine(cfg).Snapshot(),
	}
	if client != nil {
		m.mode = ModeRemote
		m.screen = ScreenConnecting
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func gameTickCmd(gen int, speed time.Duration) tea.Cmd {
	return tea.Tick(speed, func(time.Time) tea.Msg {
		return GameTickMsg{gen: gen}
	})
}

func flashCmd(batchID int) tea.Cmd {
	return tea.Tick(FlashDuration, func(time.Time) tea.Msg {
		return FlashDoneMsg{BatchID: batchID}
	})
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case TickMsg:
		m.lit = !m.lit
		return m, tickCmd()
	case GameTickMsg:
		return m.handleGameTick(msg)
	case FlashDoneMsg:
		return m.handleFlashDone(msg)

	// Network messages
	case netclient.ConnectedMsg:
		m.sessionID = msg.SessionID
		m.screen = ScreenWelcome
		return m, nil
	case netclient.DisconnectedMsg:
		m.disconnected = true
		m.err = msg.Err
		return m, nil
	case netclient.ServerMsg:
		return m.handleServerMsg(msg)
	}
	return m, nil
}

// --- Network message handlers ---

func (m Model) handleServerMsg(msg netclient.ServerMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case protocol.MsgFrame:
		var payload protocol.FramePayload
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.snap = payload.Snapshot()
		}

	case protocol.MsgFlash:
		var payload protocol.FlashPayload
		if json.Unmarshal(msg.Raw, &payload) == nil {
			cells := make([]flashCell, len(payload.Cells))
			for i, c := range payload.Cells {
				cells[i] = flashCell{
					Pos:   game.Position{Row: c.Row, Col: c.Col},
					Color: game.Color(c.Color),
				}
			}
			m.flashes[payload.BatchID] = cells
			return m, flashCmd(payload.BatchID)
		}

	case protocol.MsgGameOver:
		var payload protocol.GameOverPayload
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.snap.Score = payload.Score
			m.snap.Lines = payload.Lines
			m.snap.Running = false
			m.screen = ScreenGameOver
		}

	default:
		log.Printf("unexpected server message: %s", msg.Type)
	}
	return m, nil
}

// --- Key handlers ---

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.client != nil {
			m.client.Close()
		}
		return m, tea.Quit
	case "q":
		if m.screen == ScreenPlaying {
			// Don't quit during gameplay with q
			break
		}
		if m.client != nil {
			m.client.Close()
		}
		return m, tea.Quit
	}

	switch m.screen {
	case ScreenWelcome:
		switch msg.String() {
		case "enter", "n", "s":
			return m.newGame()
		}
	case ScreenPlaying:
		return m.handlePlayingKeys(msg)
	case ScreenGameOver:
		switch msg.String() {
		case "n":
			return m.newGame()
		case "enter":
			m.screen = ScreenWelcome
		}
	}
	return m, nil
}

func (m Model) handlePlayingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var intent protocol.Intent
	switch msg.String() {
	case "left", "h":
		intent = protocol.IntentMoveLeft
	case "right", "l":
		intent = protocol.IntentMoveRight
	case "up", "x":
		intent = protocol.IntentRotate
	case "down", "j":
		intent = protocol.IntentSoftDrop
	case "n":
		return m.newGame()
	default:
		return m, nil
	}

	if m.mode == ModeRemote {
		m.client.SendIntent(intent)
		return m, nil
	}
	return m.applyLocal(intent)
}

func (m Model) newGame() (tea.Model, tea.Cmd) {
	m.screen = ScreenPlaying
	m.flashes = make(map[int][]flashCell)

	if m.mode == ModeRemote {
		m.client.SendIntent(protocol.IntentNewGame)
		return m, nil
	}

	if m.engine == nil {
		cfg := m.cfg
		cfg.AwaitEffects = true
		m.engine = game.NewEngine(cfg)
	}
	m.engine.NewGame()
	m.snap = m.engine.Snapshot()
	return m, m.restartTimer()
}

// restartTimer abandons the pending game tick and schedules a new one at
// the engine's current interval.
func (m *Model) restartTimer() tea.Cmd {
	m.tickGen++
	return gameTickCmd(m.tickGen, m.engine.Interval())
}

func (m Model) applyLocal(intent protocol.Intent) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch intent {
	case protocol.IntentMoveLeft:
		m.engine.MoveLeft()
	case protocol.IntentMoveRight:
		m.engine.MoveRight()
	case protocol.IntentRotate:
		m.engine.Rotate()
	case protocol.IntentSoftDrop:
		if m.engine.SoftDrop() {
			cmd = m.restartTimer()
		}
	}
	m.snap = m.engine.Snapshot()
	return m, cmd
}

// --- Tick handlers ---

func (m Model) handleGameTick(msg GameTickMsg) (tea.Model, tea.Cmd) {
	if m.engine == nil || msg.gen != m.tickGen || !m.engine.Running() {
		return m, nil
	}

	res := m.engine.Tick()
	m.snap = m.engine.Snapshot()

	var cmds []tea.Cmd
	if res.Cleared != nil {
		cells := make([]flashCell, len(res.Cleared.Blocks))
		for i, b := range res.Cleared.Blocks {
			cells[i] = flashCell{Pos: b.Position(), Color: b.Color}
		}
		m.flashes[res.Cleared.ID] = cells
		cmds = append(cmds, flashCmd(res.Cleared.ID))
	}

	if res.GameOver {
		m.screen = ScreenGameOver
		return m, tea.Batch(cmds...)
	}

	cmds = append(cmds, gameTickCmd(m.tickGen, m.engine.Interval()))
	return m, tea.Batch(cmds...)
}

func (m Model) handleFlashDone(msg FlashDoneMsg) (tea.Model, tea.Cmd) {
	cells, ok := m.flashes[msg.BatchID]
	if !ok {
		return m, nil
	}
	delete(m.flashes, msg.BatchID)

	if m.mode == ModeRemote {
		m.client.SendFlashDone(msg.BatchID)
		return m, nil
	}

	// Every cell of the batch blinked for the same duration.
	for range cells {
		m.engine.FlashDone(msg.BatchID)
	}
	m.snap = m.engine.Snapshot()
	return m, nil
}

// --- View ---

func (m Model) View() string {
	if m.disconnected {
		return m.renderCentered("Disconnected from server.\nPress Ctrl+C to exit.")
	}

	switch m.screen {
	case ScreenConnecting:
		return m.renderCentered("Connecting to server...")
	case ScreenWelcome:
		return m.renderCentered(RenderWelcome())
	case ScreenPlaying:
		return m.renderCentered(m.renderPlaying())
	case ScreenGameOver:
		return m.renderCentered(RenderGameOver(m.snap.Score, m.snap.Lines) +
			"\n\nPress N for a new game, ENTER for the menu")
	}
	return ""
}

func (m Model) renderCentered(content string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func (m Model) renderPlaying() string {
	var flashing []flashCell
	for _, cells := range m.flashes {
		flashing = append(flashing, cells...)
	}

	leftPanel := lipgloss.NewStyle().
		Width(24).
		Render(RenderInfo(m.playerName, m.snap))

	centerPanel := lipgloss.NewStyle().
		Padding(1, 2).
		Render(RenderBoard(m.snap, flashing, m.lit))

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, centerPanel)
}

func (m Model) Screen() Screen {
	return m.screen
}

func (m Model) Snapshot() game.Snapshot {
	return m.snap
}

func (m Model) SessionID() string {
	return m.sessionID
}
