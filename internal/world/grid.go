package world

import (
	"github.com/annel0/blockverse/internal/lighting"
	"github.com/annel0/blockverse/internal/vec"
)

// Grid двумерный массив чанков. Чанки создаются один раз и живут
// столько же, сколько процесс.
type Grid struct {
	sizeX, sizeZ int
	chunks       []*Chunk
}

// NewGrid создаёт сетку sizeX x sizeZ пустых чанков
func NewGrid(sizeX, sizeZ int) *Grid {
	g := &Grid{sizeX: sizeX, sizeZ: sizeZ, chunks: make([]*Chunk, 0, sizeX*sizeZ)}
	for cx := 0; cx < sizeX; cx++ {
		for cz := 0; cz < sizeZ; cz++ {
			g.chunks = append(g.chunks, NewChunk(vec.ChunkCoords{X: cx, Z: cz}))
		}
	}
	return g
}

// SizeX ширина в чанках
func (g *Grid) SizeX() int { return g.sizeX }

// SizeZ глубина в чанках
func (g *Grid) SizeZ() int { return g.sizeZ }

// Chunk возвращает чанк по координатам или nil вне сетки
func (g *Grid) Chunk(c vec.ChunkCoords) *Chunk {
	if c.X < 0 || c.Z < 0 || c.X >= g.sizeX || c.Z >= g.sizeZ {
		return nil
	}
	return g.chunks[c.X*g.sizeZ+c.Z]
}

// ChunkAt возвращает чанк, содержащий блок, или nil
func (g *Grid) ChunkAt(p vec.Position) *Chunk {
	if !g.Contains(p) {
		return nil
	}
	return g.Chunk(p.ChunkCoords())
}

// Contains лежит ли позиция внутри мира
func (g *Grid) Contains(p vec.Position) bool {
	return p.X >= 0 && p.Z >= 0 && p.Y >= 0 &&
		p.X < g.sizeX*vec.ChunkSize && p.Z < g.sizeZ*vec.ChunkSize && p.Y < vec.ChunkHeight
}

// Bounds область всего мира
func (g *Grid) Bounds() lighting.Box {
	return lighting.Box{Max: vec.Position{
		X: g.sizeX*vec.ChunkSize - 1,
		Y: vec.ChunkHeight - 1,
		Z: g.sizeZ*vec.ChunkSize - 1,
	}}
}

// All все чанки в построчном порядке (cx внешний, cz внутренний)
func (g *Grid) All() []*Chunk {
	return g.chunks
}

// ChunksIn чанки, пересекающиеся с областью, в построчном порядке
func (g *Grid) ChunksIn(b lighting.Box) []*Chunk {
	b = b.Intersect(g.Bounds())
	if b.Empty() {
		return nil
	}
	lo, hi := b.Min.ChunkCoords(), b.Max.ChunkCoords()
	out := make([]*Chunk, 0, (hi.X-lo.X+1)*(hi.Z-lo.Z+1))
	for cx := lo.X; cx <= hi.X; cx++ {
		for cz := lo.Z; cz <= hi.Z; cz++ {
			out = append(out, g.Chunk(vec.ChunkCoords{X: cx, Z: cz}))
		}
	}
	return out
}

// Neighbours четыре соседа по граням (отсутствующие пропускаются)
func (g *Grid) Neighbours(c *Chunk) []*Chunk {
	out := make([]*Chunk, 0, 4)
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		if n := g.Chunk(c.Coords.Add(d[0], d[1])); n != nil {
			out = append(out, n)
		}
	}
	return out
}
