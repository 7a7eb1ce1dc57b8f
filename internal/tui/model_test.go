package tui

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hersh/blockfall/internal/game"
	"github.com/hersh/blockfall/internal/netclient"
	"github.com/hersh/blockfall/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	intents    []protocol.Intent
	flashDones []int
	closed     bool
}

func (f *fakeSender) SendIntent(intent protocol.Intent) { f.intents = append(f.intents, intent) }
func (f *fakeSender) SendFlashDone(batchID int)         { f.flashDones = append(f.flashDones, batchID) }
func (f *fakeSender) Close()                            { f.closed = true }

var testConfig = game.Config{
	NormalInterval: 400 * time.Millisecond,
	FastInterval:   15 * time.Millisecond,
	Seed:           3,
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func activeCols(snap game.Snapshot) []int {
	cols := make([]int, len(snap.Active))
	for i, p := range snap.Active {
		cols[i] = p.Col
	}
	return cols
}

func TestLocalStartAndTick(t *testing.T) {
	m := NewModel("tester", testConfig, nil)
	assert.Equal(t, ScreenWelcome, m.Screen())

	m, cmd := update(t, m, key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, ScreenPlaying, m.Screen())
	assert.True(t, m.Snapshot().Running)
	assert.Empty(t, m.Snapshot().Active)

	m, cmd = update(t, m, GameTickMsg{gen: m.tickGen})
	require.NotNil(t, cmd)
	assert.Len(t, m.Snapshot().Active, 4)
	assert.Equal(t, 1, m.Snapshot().Ticks)
}

func TestStaleGameTickIsDropped(t *testing.T) {
	m := NewModel("tester", testConfig, nil)
	m, _ = update(t, m, key("n"))
	stale := m.tickGen

	m, _ = update(t, m, GameTickMsg{gen: stale})
	m, _ = update(t, m, key("down"))
	require.True(t, m.Snapshot().FastDrop)
	require.NotEqual(t, stale, m.tickGen)

	m, cmd := update(t, m, GameTickMsg{gen: stale})
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.Snapshot().Ticks)
}

func TestLocalMoveLeft(t *testing.T) {
	m := NewModel("tester", testConfig, nil)
	m, _ = update(t, m, key("enter"))
	m, _ = update(t, m, GameTickMsg{gen: m.tickGen})
	before := activeCols(m.Snapshot())

	m, _ = update(t, m, key("left"))
	after := activeCols(m.Snapshot())
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i]-1, after[i])
	}
}

func TestQuitIgnoredWhilePlaying(t *testing.T) {
	m := NewModel("tester", testConfig, nil)
	m, _ = update(t, m, key("enter"))

	m, cmd := update(t, m, key("q"))
	assert.Nil(t, cmd)
	assert.Equal(t, ScreenPlaying, m.Screen())

	_, cmd = update(t, m, key("ctrl+c"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRemoteFlow(t *testing.T) {
	fake := &fakeSender{}
	m := NewModel("tester", testConfig, fake)
	assert.Equal(t, ScreenConnecting, m.Screen())

	m, _ = update(t, m, netclient.ConnectedMsg{SessionID: "session_1"})
	assert.Equal(t, ScreenWelcome, m.Screen())
	assert.Equal(t, "session_1", m.SessionID())

	m, _ = update(t, m, key("enter"))
	m, _ = update(t, m, key("left"))
	m, _ = update(t, m, key("x"))
	assert.Equal(t, []protocol.Intent{protocol.IntentNewGame, protocol.IntentMoveLeft, protocol.IntentRotate}, fake.intents)

	board := make([]int, game.BoardWidth*game.BoardHeight)
	board[0] = int(game.ColorCyan)
	m, _ = update(t, m, serverMsg(t, protocol.MsgFrame, protocol.FramePayload{
		Score: 30, Lines: 3, Running: true, Next: "t", Board: board,
	}))
	assert.Equal(t, 30, m.Snapshot().Score)
	assert.Equal(t, game.KindT, m.Snapshot().Next)
	assert.Equal(t, game.ColorCyan, m.Snapshot().At(game.Position{Row: 0, Col: 0}))

	m, cmd := update(t, m, serverMsg(t, protocol.MsgFlash, protocol.FlashPayload{
		BatchID: 7, Rows: []int{15}, Cells: []protocol.Cell{{Row: 15, Col: 0, Color: 1}},
	}))
	require.NotNil(t, cmd)
	assert.Contains(t, m.flashes, 7)

	m, _ = update(t, m, FlashDoneMsg{BatchID: 7})
	m, _ = update(t, m, FlashDoneMsg{BatchID: 7})
	assert.Equal(t, []int{7}, fake.flashDones)

	m, _ = update(t, m, serverMsg(t, protocol.MsgGameOver, protocol.GameOverPayload{Score: 40, Lines: 4}))
	assert.Equal(t, ScreenGameOver, m.Screen())
	assert.Contains(t, m.View(), "GAME OVER")

	_, _ = update(t, m, key("q"))
	assert.True(t, fake.closed)
}

func TestViewShowsBoardAndInfo(t *testing.T) {
	m := NewModel("tester", testConfig, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = update(t, m, key("enter"))
	m, _ = update(t, m, GameTickMsg{gen: m.tickGen})

	view := m.View()
	assert.Contains(t, view, "Score: 0")
	assert.Contains(t, view, "NEXT")
	assert.True(t, strings.Contains(view, "██"))
}

func TestRenderBoardDrawsFlashOverlay(t *testing.T) {
	snap := game.NewEngine(testConfig).Snapshot()
	out := RenderBoard(snap, []flashCell{{Pos: game.Position{Row: 15, Col: 2}, Color: game.ColorRed}}, true)
	assert.Contains(t, out, "▓▓")
	assert.NotContains(t, out, "██")
}

func serverMsg(t *testing.T, typ protocol.MessageType, payload interface{}) tea.Msg {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return netclient.ServerMsg{Type: typ, Raw: raw}
}
