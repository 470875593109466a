package lighting

import "github.com/annel0/blockverse/internal/vec"

// Box прямоугольная область мира, границы включительно
type Box struct {
	Min, Max vec.Position
}

// NewBox создаёт область по двум углам в любом порядке
func NewBox(a, b vec.Position) Box {
	return Box{
		Min: vec.Position{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)},
		Max: vec.Position{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)},
	}
}

// Empty пуста ли область
func (b Box) Empty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Contains лежит ли позиция внутри
func (b Box) Contains(p vec.Position) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Expand расширяет область на n во все стороны
func (b Box) Expand(n int) Box {
	return Box{
		Min: vec.Position{X: b.Min.X - n, Y: b.Min.Y - n, Z: b.Min.Z - n},
		Max: vec.Position{X: b.Max.X + n, Y: b.Max.Y + n, Z: b.Max.Z + n},
	}
}

// ExpandXZ расширяет область только по горизонтали
func (b Box) ExpandXZ(n int) Box {
	b.Min.X -= n
	b.Min.Z -= n
	b.Max.X += n
	b.Max.Z += n
	return b
}

// Intersect возвращает пересечение (может быть пустым)
func (b Box) Intersect(o Box) Box {
	return Box{
		Min: vec.Position{X: max(b.Min.X, o.Min.X), Y: max(b.Min.Y, o.Min.Y), Z: max(b.Min.Z, o.Min.Z)},
		Max: vec.Position{X: min(b.Max.X, o.Max.X), Y: min(b.Max.Y, o.Max.Y), Z: min(b.Max.Z, o.Max.Z)},
	}
}

// Volume количество вокселей в области
func (b Box) Volume() int {
	if b.Empty() {
		return 0
	}
	return (b.Max.X - b.Min.X + 1) * (b.Max.Y - b.Min.Y + 1) * (b.Max.Z - b.Min.Z + 1)
}

// Each обходит область в порядке x, y, z
func (b Box) Each(fn func(p vec.Position)) {
	if b.Empty() {
		return
	}
	for x := b.Min.X; x <= b.Max.X; x++ {
		for y := b.Min.Y; y <= b.Max.Y; y++ {
			for z := b.Min.Z; z <= b.Max.Z; z++ {
				fn(vec.Position{X: x, Y: y, Z: z})
			}
		}
	}
}

// ChunkBox область, занимаемая чанком
func ChunkBox(c vec.ChunkCoords) Box {
	o := c.Origin()
	return Box{
		Min: o,
		Max: vec.Position{X: o.X + vec.ChunkSize - 1, Y: vec.ChunkHeight - 1, Z: o.Z + vec.ChunkSize - 1},
	}
}
