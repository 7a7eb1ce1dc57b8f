package game

import (
	"sort"

	"github.com/kamstrup/intmap"
)

// Store holds the settled blocks, keyed by cell index. It never contains
// more than one block per position.
type Store struct {
	cells *intmap.Map[int, *Block]
}

func NewStore() *Store {
	return &Store{cells: intmap.New[int, *Block](BoardWidth * BoardHeight)}
}

// Occupied reports whether a settled block sits exactly at p.
func (s *Store) Occupied(p Position) bool {
	if !InBounds(p) {
		return false
	}
	return s.cells.Has(p.index())
}

// Valid is the gate for every state-changing move: all positions must be
// on the board and free of settled blocks.
func (s *Store) Valid(ps []Position) bool {
	for _, p := range ps {
		if !InBounds(p) || s.Occupied(p) {
			return false
		}
	}
	return true
}

// At returns the settled block at p, or nil.
func (s *Store) At(p Position) *Block {
	if !InBounds(p) {
		return nil
	}
	b, _ := s.cells.Get(p.index())
	return b
}

// Put settles b at its current position, replacing whatever was there.
// Out-of-bounds blocks are dropped.
func (s *Store) Put(b *Block) {
	p := b.Position()
	if !InBounds(p) {
		return
	}
	s.cells.Put(p.index(), b)
}

func (s *Store) Len() int {
	return s.cells.Len()
}

// Blocks returns the settled blocks in row-major order.
func (s *Store) Blocks() []*Block {
	blocks := make([]*Block, 0, s.cells.Len())
	s.cells.ForEach(func(_ int, b *Block) bool {
		blocks = append(blocks, b)
		return true
	})
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Position().index() < blocks[j].Position().index()
	})
	return blocks
}

// RowCount returns how many settled blocks share row.
func (s *Store) RowCount(row int) int {
	n := 0
	for col := 0; col < BoardWidth; col++ {
		if s.cells.Has(Position{Row: row, Col: col}.index()) {
			n++
		}
	}
	return n
}

// RemoveRow detaches every block on row and returns them left to right.
func (s *Store) RemoveRow(row int) []*Block {
	var removed []*Block
	for col := 0; col < BoardWidth; col++ {
		idx := Position{Row: row, Col: col}.index()
		if b, ok := s.cells.Get(idx); ok {
			removed = append(removed, b)
			s.cells.Del(idx)
		}
	}
	return removed
}

// ShiftDown moves every settled block down by the number of cleared rows
// below it. cleared holds row indices and may be in any order.
func (s *Store) ShiftDown(cleared []int) {
	s.ApplyDrops(s.PlanDrops(cleared))
}

// Drop is a pending downward move of one settled block.
type Drop struct {
	Block *Block
	Rows  int
}

// PlanDrops records how far each block settled now must fall once the
// cleared rows collapse. Blocks settled later are not part of the plan.
func (s *Store) PlanDrops(cleared []int) []Drop {
	var drops []Drop
	for _, b := range s.Blocks() {
		if n := clearedBelow(b.Row, cleared); n > 0 {
			drops = append(drops, Drop{Block: b, Rows: n})
		}
	}
	return drops
}

// ApplyDrops moves the planned blocks that are still settled. A block
// stops early above any cell that became occupied since the plan was
// made; ApplyDrops returns how many did.
func (s *Store) ApplyDrops(drops []Drop) int {
	live := make([]Drop, 0, len(drops))
	for _, d := range drops {
		if s.At(d.Block.Position()) == d.Block {
			s.cells.Del(d.Block.Position().index())
			live = append(live, d)
		}
	}
	// Bottom first, so blocks already lowered are obstacles for the rest.
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].Block.Row > live[j].Block.Row
	})

	short := 0
	for _, d := range live {
		b := d.Block
		moved := 0
		for moved < d.Rows {
			next := Position{Row: b.Row + 1, Col: b.Col}
			if !InBounds(next) || s.Occupied(next) {
				break
			}
			b.Row++
			moved++
		}
		if moved < d.Rows {
			short++
		}
		s.Put(b)
	}
	return short
}

func clearedBelow(row int, cleared []int) int {
	n := 0
	for _, r := range cleared {
		if r > row {
			n++
		}
	}
	return n
}

// Reset disposes of every settled block.
func (s *Store) Reset() {
	s.cells.Clear()
}
