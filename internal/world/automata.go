package world

import (
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// maxAutomataEdits предел правок одного чанка за шаг
const maxAutomataEdits = 64

// TickAutomata один шаг клеточных автоматов: вода растекается в соседний
// воздух на своём уровне и ниже, трава переходит на землю, над которой
// ровно воздух. Кандидаты собираются до применения, поэтому шаг не
// зависит от порядка обхода. Возвращает применённые правки для рассылки.
func (w *World) TickAutomata() []Edit {
	var edits []Edit
	seen := make(map[vec.Position]bool)
	for _, c := range w.grid.All() {
		if c.WaterExpanding.Load() {
			found := w.waterCandidates(c)
			if len(found) == 0 {
				c.WaterExpanding.Store(false)
			}
			for _, p := range found {
				if !seen[p] {
					seen[p] = true
					edits = append(edits, Edit{Pos: p, Type: block.Water})
				}
			}
		}
		if c.GrassGrowing.Load() {
			found := w.grassCandidates(c)
			if len(found) == 0 {
				c.GrassGrowing.Store(false)
			}
			for _, p := range found {
				if !seen[p] {
					seen[p] = true
					edits = append(edits, Edit{Pos: p, Type: block.Grass})
				}
			}
		}
	}
	w.PlaceBlocks(edits)
	return edits
}

func (w *World) waterCandidates(c *Chunk) []vec.Position {
	var out []vec.Position
	origin := c.Coords.Origin()
	c.Mu.RLock()
	var water []vec.Position
	for x := 0; x < vec.ChunkSize; x++ {
		for y := 1; y < vec.ChunkHeight; y++ {
			for z := 0; z < vec.ChunkSize; z++ {
				if c.blocks[x][y][z].Type() == block.Water {
					water = append(water, vec.Position{X: origin.X + x, Y: y, Z: origin.Z + z})
				}
			}
		}
	}
	c.Mu.RUnlock()

	for _, p := range water {
		for _, f := range [...]vec.Face{vec.FaceBottom, vec.FaceFront, vec.FaceRight, vec.FaceLeft, vec.FaceBack} {
			n := p.Offset(f)
			if n.Y == 0 || !w.grid.Contains(n) || w.BlockType(n) != block.Air {
				continue
			}
			out = append(out, n)
			if len(out) >= maxAutomataEdits {
				return out
			}
		}
	}
	return out
}

func (w *World) grassCandidates(c *Chunk) []vec.Position {
	var out []vec.Position
	origin := c.Coords.Origin()
	c.Mu.RLock()
	var grass []vec.Position
	for x := 0; x < vec.ChunkSize; x++ {
		for y := 0; y < vec.ChunkHeight; y++ {
			for z := 0; z < vec.ChunkSize; z++ {
				if c.blocks[x][y][z].Type() == block.Grass {
					grass = append(grass, vec.Position{X: origin.X + x, Y: y, Z: origin.Z + z})
				}
			}
		}
	}
	c.Mu.RUnlock()

	for _, p := range grass {
		for _, f := range [...]vec.Face{vec.FaceFront, vec.FaceRight, vec.FaceLeft, vec.FaceBack} {
			n := p.Offset(f)
			if w.BlockType(n) != block.Dirt || w.BlockType(n.Above()) != block.Air || !w.grid.Contains(n.Above()) {
				continue
			}
			out = append(out, n)
			if len(out) >= maxAutomataEdits {
				return out
			}
		}
	}
	return out
}
