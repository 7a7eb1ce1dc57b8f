package game

import (
	"time"
)

const (
	PointsPerRow = 10

	DefaultNormalInterval = 400 * time.Millisecond
	DefaultFastInterval   = 15 * time.Millisecond
)

// Config controls the engine's timing and randomness.
type Config struct {
	NormalInterval time.Duration
	FastInterval   time.Duration
	Seed           int64

	// AwaitEffects defers the collapse of cleared rows until every flash
	// effect of the batch has been acknowledged with FlashDone. When false
	// the rows collapse inside the tick that cleared them.
	AwaitEffects bool
}

func DefaultConfig() Config {
	return Config{
		NormalInterval: DefaultNormalInterval,
		FastInterval:   DefaultFastInterval,
		Seed:           time.Now().UnixNano(),
	}
}

func (c Config) withDefaults() Config {
	if c.NormalInterval <= 0 {
		c.NormalInterval = DefaultNormalInterval
	}
	if c.FastInterval <= 0 {
		c.FastInterval = DefaultFastInterval
	}
	return c
}

// ClearBatch is the set of rows one tick removed. Its blocks are already
// gone from the store; the rows above collapse once every flash effect
// requested for the batch has finished.
type ClearBatch struct {
	ID     int
	Rows   []int // bottom to top
	Blocks []*Block

	pending int
	drops   []Drop
}

// Cells returns the positions of the cleared blocks.
func (b *ClearBatch) Cells() []Position {
	cells := make([]Position, len(b.Blocks))
	for i, blk := range b.Blocks {
		cells[i] = blk.Position()
	}
	return cells
}

// Pending reports how many flash effects have not been acknowledged yet.
func (b *ClearBatch) Pending() int {
	return b.pending
}

// TickResult describes what one tick did.
type TickResult struct {
	Fell      bool
	Committed bool
	Spawned   bool
	Cleared   *ClearBatch
	GameOver  bool
}

// Engine owns the whole game state. It is driven from a single goroutine:
// the caller runs the periodic timer at Interval() and calls Tick, and
// applies player intents between ticks.
type Engine struct {
	cfg   Config
	store *Store
	gen   *PieceGenerator

	active   []*Piece
	score    int
	lines    int
	ticks    int
	running  bool
	fastDrop bool

	batches   map[int]*ClearBatch
	lastBatch int
}

// NewEngine returns an engine in the NotRunning state with an empty board.
func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:     cfg,
		store:   NewStore(),
		gen:     NewPieceGenerator(cfg.Seed),
		batches: make(map[int]*ClearBatch),
	}
}

// NewGame resets the board and starts running from any state.
func (e *Engine) NewGame() {
	for _, p := range e.active {
		p.Clear()
	}
	e.active = nil
	e.store.Reset()
	e.batches = make(map[int]*ClearBatch)
	e.score = 0
	e.lines = 0
	e.ticks = 0
	e.fastDrop = false
	e.running = true
}

// Tick advances the game one step: gravity or commit, spawn, line-clear
// scan, game-over check, always in that order.
func (e *Engine) Tick() TickResult {
	var res TickResult
	if !e.running {
		return res
	}
	e.ticks++

	// Advance.
	remaining := e.active[:0]
	for _, p := range e.active {
		if e.store.Valid(p.FallingPositions()) {
			p.Fall()
			res.Fell = true
			remaining = append(remaining, p)
			continue
		}
		e.commit(p)
		res.Committed = true
	}
	e.active = remaining

	// Spawn.
	spawnBlocked := false
	var blocked Kind
	if len(e.active) == 0 {
		k := e.gen.Next()
		if e.store.Valid(SpawnPositions(k)) {
			e.active = append(e.active, NewPiece(k))
			res.Spawned = true
		} else {
			spawnBlocked = true
			blocked = k
		}
		e.fastDrop = false
	}

	res.Cleared = e.clearLines()

	// A spawn blocked only by rows this tick cleared goes ahead.
	if spawnBlocked && e.store.Valid(SpawnPositions(blocked)) {
		e.active = append(e.active, NewPiece(blocked))
		res.Spawned = true
		spawnBlocked = false
	}

	// A blocked spawn ends the game here instead of creating a piece that
	// overlaps the landscape.
	if spawnBlocked || e.store.Occupied(Position{Row: 0, Col: SpawnCol}) {
		e.running = false
		e.fastDrop = false
		res.GameOver = true
	}
	return res
}

func (e *Engine) commit(p *Piece) {
	for _, b := range p.Blocks {
		e.store.Put(b)
	}
	p.Blocks = nil
}

func (e *Engine) clearLines() *ClearBatch {
	var rows []int
	var blocks []*Block
	for row := BoardHeight - 1; row >= 0; row-- {
		if e.store.RowCount(row) != BoardWidth {
			continue
		}
		blocks = append(blocks, e.store.RemoveRow(row)...)
		rows = append(rows, row)
		e.score += PointsPerRow
		e.lines++
	}
	if len(rows) == 0 {
		return nil
	}

	e.lastBatch++
	batch := &ClearBatch{ID: e.lastBatch, Rows: rows, Blocks: blocks, pending: len(blocks)}
	if !e.cfg.AwaitEffects {
		batch.pending = 0
		e.store.ShiftDown(rows)
		return batch
	}
	batch.drops = e.store.PlanDrops(rows)
	e.batches[batch.ID] = batch
	return batch
}

// FlashDone acknowledges one finished flash effect of batch id. When the
// last one arrives the rows above the batch collapse and FlashDone
// returns true. Unknown or stale ids are ignored.
func (e *Engine) FlashDone(id int) bool {
	batch, ok := e.batches[id]
	if !ok {
		return false
	}
	batch.pending--
	if batch.pending > 0 {
		return false
	}
	delete(e.batches, id)
	e.store.ApplyDrops(batch.drops)
	return true
}

// FinishClear acknowledges every outstanding effect of batch id at once.
func (e *Engine) FinishClear(id int) bool {
	batch, ok := e.batches[id]
	if !ok {
		return false
	}
	batch.pending = 1
	return e.FlashDone(id)
}

// PendingClears returns how many batches are still waiting on effects.
func (e *Engine) PendingClears() int {
	return len(e.batches)
}

// MoveLeft shifts the active piece one column left if the move is valid.
func (e *Engine) MoveLeft() bool {
	return e.shift((*Piece).LeftPositions, (*Piece).MoveLeft)
}

// MoveRight shifts the active piece one column right if the move is valid.
func (e *Engine) MoveRight() bool {
	return e.shift((*Piece).RightPositions, (*Piece).MoveRight)
}

func (e *Engine) shift(preview func(*Piece) []Position, apply func(*Piece)) bool {
	if !e.running {
		return false
	}
	moved := false
	for _, p := range e.active {
		if e.store.Valid(preview(p)) {
			apply(p)
			moved = true
		}
	}
	return moved
}

// Rotate turns the active piece about its pivot if the result is valid.
func (e *Engine) Rotate() bool {
	if !e.running {
		return false
	}
	rotated := false
	for _, p := range e.active {
		if p.Rotate(e.store) {
			rotated = true
		}
	}
	return rotated
}

// SoftDrop switches to the fast interval until the next piece spawns.
// It returns true if the interval changed.
func (e *Engine) SoftDrop() bool {
	if !e.running || e.fastDrop {
		return false
	}
	e.fastDrop = true
	return true
}

// Interval is the period the driver should wait before the next Tick.
func (e *Engine) Interval() time.Duration {
	if e.fastDrop {
		return e.cfg.FastInterval
	}
	return e.cfg.NormalInterval
}

func (e *Engine) Running() bool  { return e.running }
func (e *Engine) FastDrop() bool { return e.fastDrop }
func (e *Engine) Score() int     { return e.score }
func (e *Engine) Lines() int     { return e.lines }
func (e *Engine) Ticks() int     { return e.ticks }
func (e *Engine) Store() *Store  { return e.store }
func (e *Engine) NextKind() Kind { return e.gen.Peek() }

// Active returns the falling piece, or nil between commit and spawn.
func (e *Engine) Active() *Piece {
	if len(e.active) == 0 {
		return nil
	}
	return e.active[0]
}

// Snapshot is a copy of the visible state, safe to hand to a renderer.
type Snapshot struct {
	// Board is row-major, BoardWidth*BoardHeight cells, active piece
	// included. ColorNone marks an empty cell.
	Board    []Color
	Active   []Position
	Score    int
	Lines    int
	Ticks    int
	Running  bool
	FastDrop bool
	Next     Kind
}

// At returns the color at p, or ColorNone when p is off the board.
func (s Snapshot) At(p Position) Color {
	if !InBounds(p) || len(s.Board) != BoardWidth*BoardHeight {
		return ColorNone
	}
	return s.Board[p.index()]
}

func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Board:    make([]Color, BoardWidth*BoardHeight),
		Score:    e.score,
		Lines:    e.lines,
		Ticks:    e.ticks,
		Running:  e.running,
		FastDrop: e.fastDrop,
		Next:     e.gen.Peek(),
	}
	for _, b := range e.store.Blocks() {
		snap.Board[b.Position().index()] = b.Color
	}
	for _, p := range e.active {
		for _, b := range p.Blocks {
			pos := b.Position()
			if InBounds(pos) {
				snap.Board[pos.index()] = b.Color
			}
			snap.Active = append(snap.Active, pos)
		}
	}
	return snap
}
