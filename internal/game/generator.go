package game

import (
	"math/rand"
)

// PieceGenerator draws piece kinds uniformly at random.
// When created with the same seed, two generators produce identical sequences.
type PieceGenerator struct {
	rng  *rand.Rand
	next Kind
}

// NewPieceGenerator creates a seeded generator.
func NewPieceGenerator(seed int64) *PieceGenerator {
	pg := &PieceGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
	pg.next = pg.draw()
	return pg
}

// Next returns the upcoming kind and draws a new one behind it.
func (pg *PieceGenerator) Next() Kind {
	k := pg.next
	pg.next = pg.draw()
	return k
}

// Peek returns the next kind without consuming it.
func (pg *PieceGenerator) Peek() Kind {
	return pg.next
}

func (pg *PieceGenerator) draw() Kind {
	return Kind(pg.rng.Intn(NumKinds))
}
