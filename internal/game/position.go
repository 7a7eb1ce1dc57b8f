package game

const (
	BoardWidth  = 10
	BoardHeight = 16

	// SpawnCol is the column every piece spawns around. A settled block at
	// row 0 of this column ends the game.
	SpawnCol = 4
)

// Position is a (row, column) cell on the board. Row 0 is the top.
type Position struct {
	Row int
	Col int
}

// InBounds reports whether p lies on the board.
func InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < BoardHeight && p.Col >= 0 && p.Col < BoardWidth
}

// index flattens an in-bounds position into a row-major cell index.
func (p Position) index() int {
	return p.Row*BoardWidth + p.Col
}

// Color is the style tag carried by a block. Zero means empty.
type Color int

const (
	ColorNone Color = iota
	ColorYellow
	ColorCyan
	ColorOrange
	ColorPurple
	ColorRed
)

// Block is one grid unit, either settled or part of a falling piece.
// Blocks are shared by pointer: two blocks on the same cell are distinct
// until settling replaces one of them.
type Block struct {
	Row   int
	Col   int
	Color Color
}

func (b *Block) Position() Position {
	return Position{Row: b.Row, Col: b.Col}
}

func (b *Block) fall()      { b.Row++ }
func (b *Block) moveLeft()  { b.Col-- }
func (b *Block) moveRight() { b.Col++ }
