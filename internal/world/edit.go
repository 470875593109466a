package world

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/annel0/blockverse/internal/lighting"
	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Edit одиночная правка в пакетных операциях
type Edit struct {
	Pos  vec.Position
	Type block.Type
}

// PlaceBlock единственная точка изменения блоков. Позиция вне мира и
// очистка нижнего слоя молча игнорируются. При bulk=false на клиенте
// планируется пересчёт света и пересборка, а UI получает звук.
func (w *World) PlaceBlock(pos vec.Position, t block.Type, bulk bool) {
	c := w.grid.ChunkAt(pos)
	if c == nil || (pos.Y == 0 && t == block.Air) {
		return
	}
	x, y, z := pos.Local()

	c.Mu.Lock()
	if t == block.Air && y+1 < vec.ChunkHeight && c.blocks[x][y+1][z].Type() == block.Water {
		t = block.Water
	}
	priorHeight := c.heightMap[x][z]
	belowTransparent := y == 0 || c.blocks[x][y-1][z].IsTransparent()
	verticalSun := y >= priorHeight && belowTransparent

	c.blocks[x][y][z] = block.New(t).WithDirty(true)

	if t.IsTransparent() {
		if y == c.heightMap[x][z] {
			c.heightMap[x][z] = c.scanColumn(x, z, y-1)
		}
		if y < c.deepest {
			c.deepest = y
		}
	} else {
		if y > c.heightMap[x][z] {
			c.heightMap[x][z] = y
		}
		if y == c.deepest {
			c.deepest = c.scanDeepest()
		}
	}

	// Под любым непустым блоком, включая воду, трава и снег становятся землёй
	if t != block.Air && y > 0 {
		if below := c.blocks[x][y-1][z].Type(); below == block.Grass || below == block.Snow {
			c.blocks[x][y-1][z] = block.New(block.Dirt).WithDirty(true)
		}
	}

	if t == block.Air && y > 0 && c.blocks[x][y-1][z].Type() == block.Dirt {
		c.GrassGrowing.Store(true)
	}
	if t == block.Dirt && y+1 < vec.ChunkHeight && c.blocks[x][y+1][z].Type() == block.Air {
		c.GrassGrowing.Store(true)
	}
	c.Mu.Unlock()

	switch t {
	case block.Water:
		c.WaterExpanding.Store(true)
	case block.Grass:
		c.GrassGrowing.Store(true)
	case block.Air:
		w.flagWaterNeighbours(pos)
	}

	w.detachStatic(pos, t)
	if !t.IsSolid() {
		w.markFalling(pos.Above())
	}
	metrics.BlockEdits.WithLabelValues(editKind(t)).Inc()

	if bulk || !w.role.Renders() {
		return
	}
	w.feedback.PlaySound(soundFor(t), pos)
	borderRemoval := t.IsTransparent() && pos.IsOnChunkBorder()
	w.scheduleRelight(lighting.SingleBlockBox(pos, verticalSun), pos, borderRemoval)
}

// PlaceCuboid заполняет параллелепипед одним типом с единственным
// пересчётом света и пересборкой на всю область.
func (w *World) PlaceCuboid(a, b vec.Position, t block.Type) {
	box := lighting.NewBox(a, b).Intersect(w.grid.Bounds())
	if box.Empty() {
		return
	}
	box.Each(func(p vec.Position) {
		w.PlaceBlock(p, t, true)
	})
	w.afterBulk(box, soundFor(t))
}

// PlaceBlocks применяет набор правок и один общий пересчёт
func (w *World) PlaceBlocks(edits []Edit) {
	if len(edits) == 0 {
		return
	}
	box := lighting.Box{Min: edits[0].Pos, Max: edits[0].Pos}
	for _, e := range edits {
		w.PlaceBlock(e.Pos, e.Type, true)
		box.Min = vec.Position{X: min(box.Min.X, e.Pos.X), Y: min(box.Min.Y, e.Pos.Y), Z: min(box.Min.Z, e.Pos.Z)}
		box.Max = vec.Position{X: max(box.Max.X, e.Pos.X), Y: max(box.Max.Y, e.Pos.Y), Z: max(box.Max.Z, e.Pos.Z)}
	}
	box = box.Intersect(w.grid.Bounds())
	if box.Empty() {
		return
	}
	w.afterBulk(box, soundFor(edits[0].Type))
}

func (w *World) afterBulk(box lighting.Box, s Sound) {
	if !w.role.Renders() {
		return
	}
	w.feedback.PlaySound(s, box.Min)
	w.scheduleRelight(lighting.CuboidBox(box.Min, box.Max), box.Min, false)
}

// relightStatic пересчёт после появления или снятия источника света
func (w *World) relightStatic(p vec.Position) {
	if !w.role.Renders() {
		return
	}
	w.scheduleRelight(lighting.SingleBlockBox(p, false), p, false)
}

// scheduleRelight ставит пересчёт света в фоновую очередь; по завершении
// затронутые чанки уходят в конвейер сборки.
func (w *World) scheduleRelight(inner lighting.Box, edit vec.Position, borderRemoval bool) {
	w.tasks.Submit(func() {
		chunks := w.Relight(context.Background(), inner, edit, borderRemoval)
		if w.chunkUpdatesDisabled.Load() {
			return
		}
		for _, c := range chunks {
			w.queuer.QueueChanged(c)
		}
	})
}

// Relight синхронный пересчёт области света. Возвращает затронутые чанки:
// чанк правки первым, а при снятии блока на границе чанка последним.
func (w *World) Relight(ctx context.Context, inner lighting.Box, edit vec.Position, borderRemoval bool) []*Chunk {
	if w.skyLight == nil || !w.ready.Load() {
		return nil
	}
	_, span := otel.Tracer("blockverse/lighting").Start(ctx, "lighting.box")
	defer span.End()

	start := time.Now()
	w.lightMu.Lock()
	outer := lighting.LightBox(w, w.skyLight, w.itemLight, inner)
	w.lightMu.Unlock()
	metrics.LightBoxDuration.Observe(time.Since(start).Seconds())

	span.SetAttributes(attribute.Int("lighting.volume", outer.Volume()))
	return orderChunks(w.grid.ChunksIn(outer), edit.ChunkCoords(), borderRemoval)
}

// orderChunks переставляет чанк правки в начало (или в конец)
func orderChunks(chunks []*Chunk, edit vec.ChunkCoords, last bool) []*Chunk {
	idx := -1
	for i, c := range chunks {
		if c.Coords == edit {
			idx = i
			break
		}
	}
	if idx < 0 {
		return chunks
	}
	out := make([]*Chunk, 0, len(chunks))
	if !last {
		out = append(out, chunks[idx])
	}
	out = append(out, chunks[:idx]...)
	out = append(out, chunks[idx+1:]...)
	if last {
		out = append(out, chunks[idx])
	}
	return out
}

// flagWaterNeighbours будит растекание воды, если рядом с очищенной
// клеткой есть вода
func (w *World) flagWaterNeighbours(pos vec.Position) {
	for _, f := range [...]vec.Face{vec.FaceFront, vec.FaceRight, vec.FaceLeft, vec.FaceBack, vec.FaceTop} {
		n := pos.Offset(f)
		if w.BlockType(n) != block.Water {
			continue
		}
		if c := w.grid.ChunkAt(n); c != nil {
			c.WaterExpanding.Store(true)
		}
	}
}

// detachStatic снимает статические предметы, потерявшие опору или место
func (w *World) detachStatic(pos vec.Position, t block.Type) {
	if t != block.Air {
		w.removeStaticAt(pos, func(*LightSource) bool { return true }, true)
	}
	if !t.IsSolid() {
		w.removeStaticAt(pos.Above(), func(*LightSource) bool { return false }, true)
	}
	if t.IsTransparent() {
		for _, f := range vec.AllFaces {
			w.removeStaticAt(pos.Offset(f), func(l *LightSource) bool { return l.Support() == pos }, false)
		}
	}
}

func (w *World) removeStaticAt(p vec.Position, light func(*LightSource) bool, clutter bool) {
	c := w.grid.ChunkAt(p)
	if c == nil {
		return
	}
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if l, ok := c.lightSources[p]; ok && light(l) {
		delete(c.lightSources, p)
	}
	if clutter {
		delete(c.clutter, p)
	}
}

// markFalling отмечает падающими предметы, лежащие в клетке p
func (w *World) markFalling(p vec.Position) {
	c := w.grid.ChunkAt(p)
	if c == nil {
		return
	}
	for _, id := range c.DynamicItemIDs() {
		if item, ok := w.BlockItem(id); ok && item.Coords().ToPosition() == p {
			item.SetFalling(true)
		}
	}
}

func soundFor(t block.Type) Sound {
	switch t {
	case block.Air:
		return SoundRemove
	case block.Water:
		return SoundSplash
	}
	return SoundPlace
}

func editKind(t block.Type) string {
	if t == block.Air {
		return "remove"
	}
	return "place"
}
