package game

// Kind tags one of the five piece layouts.
type Kind int

const (
	KindSquare Kind = iota
	KindLine
	KindL
	KindT
	KindZ
)

// NumKinds is the number of piece layouts the generator draws from.
const NumKinds = 5

func (k Kind) String() string {
	switch k {
	case KindSquare:
		return "square"
	case KindLine:
		return "line"
	case KindL:
		return "l"
	case KindT:
		return "t"
	case KindZ:
		return "z"
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String. Unknown names map to KindSquare.
func ParseKind(s string) Kind {
	for k := KindSquare; k < NumKinds; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindSquare
}

// Spawn layouts in (row, col). The second cell of each layout is the
// rotation pivot.
var spawnLayouts = map[Kind][4]Position{
	KindSquare: {{0, 4}, {0, 5}, {1, 4}, {1, 5}},
	KindLine:   {{0, 4}, {1, 4}, {2, 4}, {3, 4}},
	KindL:      {{0, 4}, {1, 4}, {2, 4}, {2, 5}},
	KindT:      {{1, 3}, {1, 4}, {1, 5}, {0, 4}},
	KindZ:      {{0, 3}, {0, 4}, {1, 4}, {1, 5}},
}

var kindColors = map[Kind]Color{
	KindSquare: ColorYellow,
	KindLine:   ColorCyan,
	KindL:      ColorOrange,
	KindT:      ColorPurple,
	KindZ:      ColorRed,
}

// SpawnPositions returns the cells a piece of kind k occupies when it
// spawns.
func SpawnPositions(k Kind) []Position {
	layout := spawnLayouts[k]
	return layout[:]
}

// Piece is the falling group of four blocks. Blocks[1] is the pivot.
type Piece struct {
	Kind   Kind
	Blocks []*Block
}

func NewPiece(k Kind) *Piece {
	color := kindColors[k]
	p := &Piece{Kind: k, Blocks: make([]*Block, 0, 4)}
	for _, pos := range spawnLayouts[k] {
		p.Blocks = append(p.Blocks, &Block{Row: pos.Row, Col: pos.Col, Color: color})
	}
	return p
}

func (p *Piece) Color() Color {
	return kindColors[p.Kind]
}

func (p *Piece) pivot() *Block {
	return p.Blocks[1]
}

// Positions returns where the piece currently is.
func (p *Piece) Positions() []Position {
	return p.mapPositions(func(b *Block) Position { return b.Position() })
}

// FallingPositions previews one gravity step without moving the piece.
func (p *Piece) FallingPositions() []Position {
	return p.mapPositions(func(b *Block) Position { return Position{b.Row + 1, b.Col} })
}

func (p *Piece) LeftPositions() []Position {
	return p.mapPositions(func(b *Block) Position { return Position{b.Row, b.Col - 1} })
}

func (p *Piece) RightPositions() []Position {
	return p.mapPositions(func(b *Block) Position { return Position{b.Row, b.Col + 1} })
}

// RotatedPositions previews a quarter turn about the pivot. A square is
// rotation invariant and always comes back unchanged.
func (p *Piece) RotatedPositions() []Position {
	if p.Kind == KindSquare {
		return p.Positions()
	}
	pv := p.pivot()
	return p.mapPositions(func(b *Block) Position {
		dRow, dCol := b.Row-pv.Row, b.Col-pv.Col
		return Position{Row: pv.Row - dCol, Col: pv.Col + dRow}
	})
}

func (p *Piece) mapPositions(f func(*Block) Position) []Position {
	out := make([]Position, len(p.Blocks))
	for i, b := range p.Blocks {
		out[i] = f(b)
	}
	return out
}

// Fall, MoveLeft and MoveRight mutate unconditionally. Check the matching
// preview against the store first.
func (p *Piece) Fall() {
	for _, b := range p.Blocks {
		b.fall()
	}
}

func (p *Piece) MoveLeft() {
	for _, b := range p.Blocks {
		b.moveLeft()
	}
}

func (p *Piece) MoveRight() {
	for _, b := range p.Blocks {
		b.moveRight()
	}
}

// Rotate turns the piece about its pivot if the rotated cells are valid
// against the settled blocks. Otherwise the piece is left as it was.
func (p *Piece) Rotate(s *Store) bool {
	if p.Kind == KindSquare {
		return false
	}
	next := p.RotatedPositions()
	if !s.Valid(next) {
		return false
	}
	for i, b := range p.Blocks {
		b.Row, b.Col = next[i].Row, next[i].Col
	}
	return true
}

// Clear detaches every block from the piece.
func (p *Piece) Clear() {
	p.Blocks = nil
}
