// Package session runs one game engine on its own goroutine and connects
// it to a remote player through protocol envelopes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hersh/blockfall/internal/game"
	"github.com/hersh/blockfall/internal/protocol"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrUnknownIntent = errors.New("unknown intent")
)

// Outbox receives every message the session publishes. Send must not
// block for long; the session loop waits on it.
type Outbox interface {
	Send(env protocol.Envelope)
}

// Session owns a game.Engine. Every engine call happens on the goroutine
// running Run, so intents and flash acknowledgements are queued through
// channels instead of touching the engine directly.
type Session struct {
	id     string
	engine *game.Engine
	out    Outbox

	intents chan protocol.Intent
	acks    chan int
	done    chan struct{}

	mu   sync.RWMutex
	info protocol.SessionInfo
}

// New creates a session that waits for a new-game intent before ticking.
// Row clears always wait for the client's flash acknowledgement.
func New(id string, cfg game.Config, out Outbox) *Session {
	cfg.AwaitEffects = true
	return &Session{
		id:      id,
		engine:  game.NewEngine(cfg),
		out:     out,
		intents: make(chan protocol.Intent, 32),
		acks:    make(chan int, 32),
		done:    make(chan struct{}),
		info:    protocol.SessionInfo{SessionID: id},
	}
}

func (s *Session) ID() string {
	return s.id
}

// Info returns the latest published score and state. Safe to call from
// any goroutine.
func (s *Session) Info() protocol.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Submit queues a player intent.
func (s *Session) Submit(ctx context.Context, intent protocol.Intent) error {
	if !intent.Valid() {
		return fmt.Errorf("submit %q: %w", intent, ErrUnknownIntent)
	}
	if s.closed() {
		return ErrSessionClosed
	}
	select {
	case s.intents <- intent:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FlashDone reports that every flash effect of batch id has finished.
func (s *Session) FlashDone(ctx context.Context, id int) error {
	if s.closed() {
		return ErrSessionClosed
	}
	select {
	case s.acks <- id:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run drives the engine until ctx is cancelled. The tick timer only runs
// while the game does; game over stops it and a new-game intent restarts
// it at the normal interval.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var tickC <-chan time.Time
	schedule := func() {
		timer.Stop()
		if !s.engine.Running() {
			tickC = nil
			return
		}
		timer.Reset(s.engine.Interval())
		tickC = timer.C
	}

	s.publishFrame()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-tickC:
			s.tick()
			schedule()

		case intent := <-s.intents:
			if s.apply(intent) {
				schedule()
			}

		case id := <-s.acks:
			if s.engine.FinishClear(id) {
				s.publishFrame()
			}
		}
	}
}

func (s *Session) tick() {
	res := s.engine.Tick()
	if res.Cleared != nil {
		s.out.Send(protocol.Envelope{
			Type:    protocol.MsgFlash,
			Payload: protocol.FlashFromBatch(res.Cleared),
		})
	}
	s.publishFrame()
	if res.GameOver {
		log.Printf("session %s: game over, score %d", s.id, s.engine.Score())
		s.out.Send(protocol.Envelope{
			Type: protocol.MsgGameOver,
			Payload: protocol.GameOverPayload{
				Score: s.engine.Score(),
				Lines: s.engine.Lines(),
			},
		})
	}
}

// apply runs one intent and reports whether the tick timer must be
// rescheduled.
func (s *Session) apply(intent protocol.Intent) bool {
	changed := false
	reschedule := false

	switch intent {
	case protocol.IntentMoveLeft:
		changed = s.engine.MoveLeft()
	case protocol.IntentMoveRight:
		changed = s.engine.MoveRight()
	case protocol.IntentRotate:
		changed = s.engine.Rotate()
	case protocol.IntentSoftDrop:
		changed = s.engine.SoftDrop()
		reschedule = changed
	case protocol.IntentNewGame:
		s.engine.NewGame()
		log.Printf("session %s: new game", s.id)
		changed = true
		reschedule = true
	}

	if changed {
		s.publishFrame()
	}
	return reschedule
}

func (s *Session) publishFrame() {
	snap := s.engine.Snapshot()

	s.mu.Lock()
	s.info.Score = snap.Score
	s.info.Running = snap.Running
	s.mu.Unlock()

	s.out.Send(protocol.Envelope{
		Type:    protocol.MsgFrame,
		Payload: protocol.FrameFromSnapshot(snap),
	})
}
