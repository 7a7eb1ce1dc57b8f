package session

import (
	"context"
	"testing"
	"time"

	"github.com/hersh/blockfall/internal/game"
	"github.com/hersh/blockfall/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanOutbox struct {
	ch chan protocol.Envelope
}

func newChanOutbox() *chanOutbox {
	return &chanOutbox{ch: make(chan protocol.Envelope, 4096)}
}

func (o *chanOutbox) Send(env protocol.Envelope) {
	o.ch <- env
}

func waitFor(t *testing.T, o *chanOutbox, typ protocol.MessageType, timeout time.Duration) protocol.Envelope {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case env := <-o.ch:
			if env.Type == typ {
				return env
			}
		case <-deadline:
			t.Fatalf("no %s message within %s", typ, timeout)
		}
	}
}

func fastConfig() game.Config {
	return game.Config{
		NormalInterval: 2 * time.Millisecond,
		FastInterval:   time.Millisecond,
		Seed:           5,
	}
}

func startSession(t *testing.T) (*Session, *chanOutbox, context.CancelFunc) {
	t.Helper()
	out := newChanOutbox()
	s := New("s1", fastConfig(), out)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return s, out, cancel
}

func TestSessionPublishesIdleFrame(t *testing.T) {
	s, out, _ := startSession(t)

	env := waitFor(t, out, protocol.MsgFrame, time.Second)
	frame, ok := env.Payload.(protocol.FramePayload)
	require.True(t, ok)
	assert.False(t, frame.Running)
	assert.Len(t, frame.Board, game.BoardWidth*game.BoardHeight)
	assert.Equal(t, "s1", s.Info().SessionID)
	assert.False(t, s.Info().Running)
}

func TestSessionRejectsUnknownIntent(t *testing.T) {
	s, _, _ := startSession(t)
	err := s.Submit(context.Background(), protocol.Intent("hard_drop"))
	assert.ErrorIs(t, err, ErrUnknownIntent)
}

func TestSessionNewGameStartsTicking(t *testing.T) {
	s, out, _ := startSession(t)
	waitFor(t, out, protocol.MsgFrame, time.Second)

	require.NoError(t, s.Submit(context.Background(), protocol.IntentNewGame))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-out.ch:
			frame, ok := env.Payload.(protocol.FramePayload)
			if !ok || !frame.Running {
				continue
			}
			filled := 0
			for _, c := range frame.Board {
				if c != 0 {
					filled++
				}
			}
			if filled == 4 {
				assert.True(t, s.Info().Running)
				return
			}
		case <-deadline:
			t.Fatal("no spawned piece after new game")
		}
	}
}

func TestSessionRunsToGameOver(t *testing.T) {
	s, out, _ := startSession(t)
	require.NoError(t, s.Submit(context.Background(), protocol.IntentNewGame))

	env := waitFor(t, out, protocol.MsgGameOver, 5*time.Second)
	over, ok := env.Payload.(protocol.GameOverPayload)
	require.True(t, ok)
	assert.GreaterOrEqual(t, over.Score, 0)

	// Drain the frame published alongside game over, then the timer is stopped.
	time.Sleep(20 * time.Millisecond)
	for len(out.ch) > 0 {
		<-out.ch
	}
	select {
	case env := <-out.ch:
		t.Fatalf("unexpected %s after game over", env.Type)
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, s.Info().Running)

	// A new game restarts the loop.
	require.NoError(t, s.Submit(context.Background(), protocol.IntentNewGame))
	env = waitFor(t, out, protocol.MsgFrame, time.Second)
	frame := env.Payload.(protocol.FramePayload)
	assert.True(t, frame.Running)
	assert.Zero(t, frame.Score)
}

func TestSessionIgnoresStaleFlashAck(t *testing.T) {
	s, out, _ := startSession(t)
	waitFor(t, out, protocol.MsgFrame, time.Second)
	require.NoError(t, s.FlashDone(context.Background(), 42))
	require.NoError(t, s.Submit(context.Background(), protocol.IntentMoveLeft))
}

func TestSessionClosed(t *testing.T) {
	out := newChanOutbox()
	s := New("s2", fastConfig(), out)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	<-s.Done()

	assert.ErrorIs(t, s.Submit(context.Background(), protocol.IntentRotate), ErrSessionClosed)
	assert.ErrorIs(t, s.FlashDone(context.Background(), 1), ErrSessionClosed)
}

func cell(frame protocol.FramePayload, row, col int) int {
	return frame.Board[row*game.BoardWidth+col]
}

func TestSessionFlashAckCollapsesRows(t *testing.T) {
	out := newChanOutbox()
	// One fast tick, then nothing until the ack.
	s := New("s3", game.Config{NormalInterval: time.Hour, FastInterval: time.Millisecond, Seed: 5}, out)
	s.engine.NewGame()
	store := s.engine.Store()
	for col := 0; col < game.BoardWidth; col++ {
		store.Put(&game.Block{Row: 15, Col: col, Color: game.ColorRed})
	}
	store.Put(&game.Block{Row: 14, Col: 0, Color: game.ColorCyan})
	store.Put(&game.Block{Row: 14, Col: 9, Color: game.ColorCyan})

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})

	require.NoError(t, s.Submit(ctx, protocol.IntentSoftDrop))

	env := waitFor(t, out, protocol.MsgFlash, time.Second)
	flash, ok := env.Payload.(protocol.FlashPayload)
	require.True(t, ok)
	assert.Equal(t, []int{15}, flash.Rows)
	assert.Len(t, flash.Cells, game.BoardWidth)

	env = waitFor(t, out, protocol.MsgFrame, time.Second)
	frame := env.Payload.(protocol.FramePayload)
	assert.Equal(t, 10, frame.Score)
	assert.Equal(t, int(game.ColorCyan), cell(frame, 14, 0), "rows wait for the ack")
	assert.Zero(t, cell(frame, 15, 0))

	require.NoError(t, s.FlashDone(ctx, flash.BatchID))
	env = waitFor(t, out, protocol.MsgFrame, time.Second)
	frame = env.Payload.(protocol.FramePayload)
	assert.Zero(t, cell(frame, 14, 0))
	assert.Equal(t, int(game.ColorCyan), cell(frame, 15, 0))
	assert.Equal(t, int(game.ColorCyan), cell(frame, 15, 9))
}
