package build

import (
	"errors"
	"sync"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// ErrConsumerTaken у передачи уже есть потребитель
var ErrConsumerTaken = errors.New("потребитель собранных чанков уже назначен")

// Renderer внешний рендер: превращает геометрию в ресурс видеокарты.
// Вызывается только из потока-потребителя.
type Renderer interface {
	Upload(c *world.Chunk, g *Geometry)
	Release(c *world.Chunk)
}

// Handoff очередь собранной геометрии от воркеров к единственному
// потребителю (потоку рендера)
type Handoff struct {
	mu       sync.Mutex
	order    []vec.ChunkCoords
	pending  map[vec.ChunkCoords]*pendingBuild
	released []*world.Chunk

	once     sync.Once
	consumer *Consumer
}

type pendingBuild struct {
	chunk *world.Chunk
	geom  *Geometry
}

// NewHandoff создаёт пустую очередь передачи
func NewHandoff() *Handoff {
	return &Handoff{pending: make(map[vec.ChunkCoords]*pendingBuild)}
}

// Consumer выдаёт единственный дескриптор потребителя. Повторный вызов
// возвращает ErrConsumerTaken.
func (h *Handoff) Consumer() (*Consumer, error) {
	var c *Consumer
	h.once.Do(func() {
		h.consumer = &Consumer{h: h}
		c = h.consumer
	})
	if c == nil {
		return nil, ErrConsumerTaken
	}
	return c, nil
}

// offer кладёт свежую геометрию; старая непереданная заменяется
func (h *Handoff) offer(c *world.Chunk, g *Geometry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.pending[c.Coords]; ok {
		p.geom = g
		return
	}
	h.pending[c.Coords] = &pendingBuild{chunk: c, geom: g}
	h.order = append(h.order, c.Coords)
}

// release просит потребителя освободить ресурс выгруженного чанка
func (h *Handoff) release(c *world.Chunk) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, c.Coords)
	h.released = append(h.released, c)
}

// Pending число ожидающих передачи чанков
func (h *Handoff) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// Consumer дескриптор потока рендера
type Consumer struct {
	h *Handoff
}

// Drain передаёт рендеру до max собранных чанков (max<=0 без ограничения)
// и освобождает ресурсы выгруженных. Чанк становится Renderable только
// если он всё ещё Built. Возвращает число переданных чанков.
func (c *Consumer) Drain(r Renderer, maxChunks int) int {
	h := c.h
	h.mu.Lock()
	released := h.released
	h.released = nil
	var batch []*pendingBuild
	for len(h.order) > 0 && (maxChunks <= 0 || len(batch) < maxChunks) {
		cc := h.order[0]
		h.order = h.order[1:]
		if p, ok := h.pending[cc]; ok {
			delete(h.pending, cc)
			batch = append(batch, p)
		}
	}
	h.mu.Unlock()

	for _, ch := range released {
		r.Release(ch)
	}

	uploaded := 0
	for _, p := range batch {
		p.chunk.BuildMu.Lock()
		if p.chunk.BuildState() == world.BuildBuilt {
			r.Upload(p.chunk, p.geom)
			p.chunk.SetBufferState(world.BufferRenderable)
			uploaded++
		}
		p.chunk.BuildMu.Unlock()
	}
	return uploaded
}
