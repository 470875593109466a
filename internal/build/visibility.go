package build

import (
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// UpdateVisibility загружает чанки в радиусе обзора вокруг center и
// выгружает дальние. Ближняя половина радиуса идёт в ближнюю очередь.
// Возвращает число поставленных и выгруженных чанков.
func (p *Pipeline) UpdateVisibility(center vec.ChunkCoords, viewDistance int) (queued, unloaded int) {
	for _, c := range p.w.Grid().All() {
		d := center.DistanceTo(c.Coords)
		state := c.BuildState()
		switch {
		case d <= float64(viewDistance):
			if state != world.BuildNotLoaded {
				continue
			}
			if d <= float64(viewDistance)/2 {
				p.Enqueue(c, world.BuildQueuedInitialFrustum)
			} else {
				p.Enqueue(c, world.BuildQueuedInitialFar)
			}
			queued++
		case state != world.BuildNotLoaded:
			p.Unload(c)
			unloaded++
		}
	}
	return queued, unloaded
}

// Unload сбрасывает чанк в NotLoaded и просит рендер освободить его ресурс.
// Записи очередей для чанка становятся устаревшими.
func (p *Pipeline) Unload(c *world.Chunk) {
	c.BuildMu.Lock()
	defer c.BuildMu.Unlock()
	c.SetBuildState(world.BuildNotLoaded)
	c.SetBufferState(world.BufferNotRenderable)
	p.handoff.release(c)
}
