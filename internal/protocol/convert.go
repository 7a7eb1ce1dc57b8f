package protocol

import (
	"github.com/hersh/blockfall/internal/game"
)

// FrameFromSnapshot flattens an engine snapshot for the wire.
func FrameFromSnapshot(s game.Snapshot) FramePayload {
	board := make([]int, len(s.Board))
	for i, c := range s.Board {
		board[i] = int(c)
	}
	return FramePayload{
		Score:    s.Score,
		Lines:    s.Lines,
		Running:  s.Running,
		FastDrop: s.FastDrop,
		Next:     s.Next.String(),
		Board:    board,
	}
}

// FlashFromBatch describes a clear batch for the wire.
func FlashFromBatch(b *game.ClearBatch) FlashPayload {
	cells := make([]Cell, len(b.Blocks))
	for i, blk := range b.Blocks {
		cells[i] = Cell{Row: blk.Row, Col: blk.Col, Color: int(blk.Color)}
	}
	return FlashPayload{
		BatchID: b.ID,
		Rows:    append([]int(nil), b.Rows...),
		Cells:   cells,
	}
}

// Snapshot rebuilds a renderable snapshot from a received frame.
func (f FramePayload) Snapshot() game.Snapshot {
	board := make([]game.Color, game.BoardWidth*game.BoardHeight)
	for i := 0; i < len(board) && i < len(f.Board); i++ {
		board[i] = game.Color(f.Board[i])
	}
	return game.Snapshot{
		Board:    board,
		Score:    f.Score,
		Lines:    f.Lines,
		Running:  f.Running,
		FastDrop: f.FastDrop,
		Next:     game.ParseKind(f.Next),
	}
}

// Positions returns the flashed cells as board positions.
func (f FlashPayload) Positions() []game.Position {
	ps := make([]game.Position, len(f.Cells))
	for i, c := range f.Cells {
		ps[i] = game.Position{Row: c.Row, Col: c.Col}
	}
	return ps
}
