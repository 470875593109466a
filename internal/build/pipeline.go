package build

import (
	"sync"
	"sync/atomic"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/world"
)

// Options параметры конвейера
type Options struct {
	Workers int // 0 = WorkerCount()
	Smooth  bool
}

type entry struct {
	chunk  *world.Chunk
	reason world.BuildState
}

// Pipeline конвейер пересборки чанков: две очереди (ближняя/изменённые и
// дальняя) с общим условием пробуждения и пул воркеров.
type Pipeline struct {
	w       *world.World
	handoff *Handoff
	opts    Options

	mu      sync.Mutex
	cond    *sync.Cond
	near    []entry
	far     []entry
	stopped bool
	wg      sync.WaitGroup
	started bool

	// building число сборок в процессе; для Idle
	building atomic.Int32
	built    atomic.Int64
	stale    atomic.Int64

	logger *logging.Logger
}

// Stats снимок состояния конвейера
type Stats struct {
	Near    int   `json:"near"`
	Far     int   `json:"far"`
	Built   int64 `json:"built"`
	Stale   int64 `json:"stale"`
	Workers int   `json:"workers"`
	Pending int   `json:"pending_upload"`
}

// NewPipeline создаёт конвейер и подключает его к миру как ChunkQueuer
func NewPipeline(w *world.World, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = WorkerCount()
	}
	p := &Pipeline{
		w:       w,
		handoff: NewHandoff(),
		opts:    opts,
		logger:  logging.GetBuildLogger(),
	}
	p.cond = sync.NewCond(&p.mu)
	w.SetQueuer(p)
	return p
}

// Handoff очередь передачи собранной геометрии в рендер
func (p *Pipeline) Handoff() *Handoff { return p.handoff }

// Start запускает воркеров
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("конвейер сборки запущен, воркеров: %d", p.opts.Workers)
}

// Stop будит и останавливает воркеров; незавершённые записи очередей отбрасываются
func (p *Pipeline) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

// isNear обслуживается ли причина ближней очередью
func isNear(reason world.BuildState) bool {
	return reason == world.BuildQueued || reason == world.BuildQueuedInitialFrustum
}

// Enqueue переводит чанк в состояние reason и ставит его в очередь.
// Если чанк уже ждёт с той же причиной, повторная запись не добавляется.
func (p *Pipeline) Enqueue(c *world.Chunk, reason world.BuildState) {
	if !reason.IsQueued() {
		return
	}
	for {
		cur := c.BuildState()
		if cur == reason {
			return
		}
		if c.CompareAndSwapBuildState(cur, reason) {
			break
		}
	}
	p.mu.Lock()
	if isNear(reason) {
		p.near = append(p.near, entry{chunk: c, reason: reason})
	} else {
		p.far = append(p.far, entry{chunk: c, reason: reason})
	}
	p.updateDepth()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// QueueChanged ставит изменённый чанк в ближнюю очередь. Незагруженные
// чанки пропускаются: их соберёт UpdateVisibility.
func (p *Pipeline) QueueChanged(c *world.Chunk) {
	if c.BuildState() == world.BuildNotLoaded {
		return
	}
	p.Enqueue(c, world.BuildQueued)
}

// QueueDayNight ставит все собранные чанки в дальнюю очередь после
// заметной смены освещённости неба
func (p *Pipeline) QueueDayNight() int {
	n := 0
	for _, c := range p.w.Grid().All() {
		if c.BuildState() == world.BuildBuilt {
			p.Enqueue(c, world.BuildQueuedDayNight)
			n++
		}
	}
	return n
}

// next берёт запись: ближняя очередь раньше дальней. Блокируется, пока
// обе пусты. ok=false после Stop.
func (p *Pipeline) next() (entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.near) == 0 && len(p.far) == 0 && !p.stopped {
		p.cond.Wait()
	}
	if p.stopped {
		return entry{}, false
	}
	var e entry
	if len(p.near) > 0 {
		e, p.near = p.near[0], p.near[1:]
	} else {
		e, p.far = p.far[0], p.far[1:]
	}
	p.building.Add(1)
	p.updateDepth()
	return e, true
}

func (p *Pipeline) updateDepth() {
	metrics.BuildQueueDepth.WithLabelValues("near").Set(float64(len(p.near)))
	metrics.BuildQueueDepth.WithLabelValues("far").Set(float64(len(p.far)))
}

func (p *Pipeline) worker(id int) {
	defer p.wg.Done()
	for {
		e, ok := p.next()
		if !ok {
			p.logger.Debug("воркер сборки %d остановлен", id)
			return
		}
		p.process(e)
		p.mu.Lock()
		p.building.Add(-1)
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// process собирает один чанк. Запись устарела, если состояние чанка
// больше не совпадает с причиной постановки.
func (p *Pipeline) process(e entry) bool {
	c := e.chunk
	c.BuildMu.Lock()
	defer c.BuildMu.Unlock()

	if !c.CompareAndSwapBuildState(e.reason, world.BuildBuilding) {
		p.stale.Add(1)
		metrics.StaleBuildEntries.Inc()
		return false
	}
	g := BuildGeometry(p.w, c, p.opts.Smooth)

	// за время сборки чанк могли снова поставить в очередь
	if !c.CompareAndSwapBuildState(world.BuildBuilding, world.BuildBuilt) {
		return false
	}
	c.CompareAndSwapBufferState(world.BufferRenderable, world.BufferNeedsRebuild)
	p.handoff.offer(c, g)
	p.built.Add(1)
	metrics.ChunksBuilt.Inc()
	p.logger.Trace("чанк %v собран: граней %d", c.Coords, g.Faces)
	return true
}

// BuildNow синхронно обрабатывает все записи очередей в текущей
// горутине. Для однопоточного режима и тестов.
func (p *Pipeline) BuildNow() int {
	n := 0
	for {
		p.mu.Lock()
		if len(p.near) == 0 && len(p.far) == 0 {
			p.mu.Unlock()
			return n
		}
		var e entry
		if len(p.near) > 0 {
			e, p.near = p.near[0], p.near[1:]
		} else {
			e, p.far = p.far[0], p.far[1:]
		}
		p.updateDepth()
		p.mu.Unlock()
		if p.process(e) {
			n++
		}
	}
}

// WaitIdle ждёт, пока очереди опустеют и воркеры закончат текущие сборки
func (p *Pipeline) WaitIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for (len(p.near) > 0 || len(p.far) > 0 || p.building.Load() > 0) && !p.stopped {
		p.cond.Wait()
	}
}

// Stats снимок очередей и счётчиков
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	s := Stats{Near: len(p.near), Far: len(p.far), Workers: p.opts.Workers}
	p.mu.Unlock()
	s.Built = p.built.Load()
	s.Stale = p.stale.Load()
	s.Pending = p.handoff.Pending()
	return s
}
