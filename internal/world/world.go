package world

import (
	"sync"
	"sync/atomic"

	"github.com/annel0/blockverse/internal/lighting"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// World хранилище мира: сетка чанков, мировые карты света и реестры
// объектов. Это единственный контекст, который получают остальные
// компоненты; глобального состояния нет.
type World struct {
	role Role
	grid *Grid

	settingsMu sync.RWMutex
	settings   Settings

	// lightMu защищает мировые карты света. Порядок блокировок:
	// сначала lightMu, потом Chunk.Mu.
	lightMu   sync.RWMutex
	skyLight  *lighting.Map
	itemLight *lighting.Map

	items   sync.Map // int32 -> *BlockItem
	mobs    sync.Map // int32 -> *Mob
	players sync.Map // int32 -> *Player
	nextID  atomic.Int32

	queuer   ChunkQueuer
	feedback Feedback
	tasks    *taskRunner

	chunkUpdatesDisabled atomic.Bool
	ready                atomic.Bool

	logger *logging.Logger
}

// Option настраивает мир при создании
type Option func(*World)

// WithQueuer подключает конвейер сборки
func WithQueuer(q ChunkQueuer) Option {
	return func(w *World) { w.queuer = q }
}

// WithFeedback подключает слой UI/звука
func WithFeedback(f Feedback) Option {
	return func(w *World) { w.feedback = f }
}

// WithLogger задаёт логгер мира
func WithLogger(l *logging.Logger) Option {
	return func(w *World) { w.logger = l }
}

// New создаёт пустой (воздушный) мир заданного размера
func New(settings Settings, role Role, opts ...Option) (*World, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.Version == "" {
		settings.Version = ProtocolVersion
	}
	w := &World{
		role:     role,
		grid:     NewGrid(settings.SizeChunksX, settings.SizeChunksZ),
		settings: settings,
		queuer:   nopQueuer{},
		feedback: logFeedback{},
		tasks:    newTaskRunner(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.GetWorldLogger()
	}
	if role.Renders() {
		w.skyLight = lighting.NewMap(w.grid.Bounds())
		w.itemLight = lighting.NewMap(w.grid.Bounds())
	}
	return w, nil
}

// SetQueuer подключает конвейер сборки после создания мира
func (w *World) SetQueuer(q ChunkQueuer) {
	w.queuer = q
}

// SetFeedback подключает слой UI/звука после создания мира
func (w *World) SetFeedback(f Feedback) {
	w.feedback = f
}

// Close останавливает фоновые задачи мира
func (w *World) Close() {
	w.tasks.Close()
}

// WaitIdle ждёт завершения всех фоновых пересчётов света
func (w *World) WaitIdle() {
	w.tasks.Wait()
}

// Role роль процесса
func (w *World) Role() Role { return w.role }

// Grid сетка чанков
func (w *World) Grid() *Grid { return w.grid }

// Feedback слой UI/звука
func (w *World) Feedback() Feedback { return w.feedback }

// Logger логгер мира
func (w *World) Logger() *logging.Logger { return w.logger }

// Settings копия текущих настроек
func (w *World) Settings() Settings {
	w.settingsMu.RLock()
	defer w.settingsMu.RUnlock()
	return w.settings
}

// SetTime обновляет игровое время и положение солнца. Возвращает true,
// если освещённость неба заметно изменилась.
func (w *World) SetTime(gameTime int32, sunDegrees float32) bool {
	w.settingsMu.Lock()
	before := lighting.SkyFactor(w.settings.SunDegrees)
	w.settings.GameTime = gameTime
	w.settings.SunDegrees = sunDegrees
	after := lighting.SkyFactor(sunDegrees)
	w.settingsMu.Unlock()
	d := after - before
	return d > 0.02 || d < -0.02
}

// SkyFactor множитель неба для текущего положения солнца
func (w *World) SkyFactor() float32 {
	w.settingsMu.RLock()
	defer w.settingsMu.RUnlock()
	return lighting.SkyFactor(w.settings.SunDegrees)
}

// Ready пройден ли барьер готовности
func (w *World) Ready() bool { return w.ready.Load() }

// SetChunkUpdatesDisabled подавляет промежуточные пересборки при массовых правках
func (w *World) SetChunkUpdatesDisabled(v bool) {
	w.chunkUpdatesDisabled.Store(v)
}

// ChunkUpdatesDisabled включено ли подавление пересборок
func (w *World) ChunkUpdatesDisabled() bool {
	return w.chunkUpdatesDisabled.Load()
}

// IsValidBlockLocation лежит ли позиция внутри мира
func (w *World) IsValidBlockLocation(p vec.Position) bool {
	return w.grid.Contains(p)
}

// BlockAt возвращает блок; вне мира воздух
func (w *World) BlockAt(p vec.Position) block.Block {
	c := w.grid.ChunkAt(p)
	if c == nil {
		return block.New(block.Air)
	}
	x, y, z := p.Local()
	return c.Block(x, y, z)
}

// BlockType тип блока; вне мира воздух
func (w *World) BlockType(p vec.Position) block.Type {
	return w.BlockAt(p).Type()
}

// --- lighting.Volume ---

// Transparent пропускает ли воксель свет
func (w *World) Transparent(p vec.Position) bool {
	c := w.grid.ChunkAt(p)
	if c == nil {
		return false
	}
	x, y, z := p.Local()
	return c.Block(x, y, z).IsTransparent()
}

// Height значение карты высот в мировой колонке
func (w *World) Height(x, z int) int {
	p := vec.Position{X: x, Z: z}
	c := w.grid.ChunkAt(p)
	if c == nil {
		return 0
	}
	lx, _, lz := p.Local()
	return c.Height(lx, lz)
}

// Sources источники предметного света внутри области
func (w *World) Sources(b lighting.Box) []lighting.Source {
	var out []lighting.Source
	for _, c := range w.grid.ChunksIn(b) {
		c.Mu.RLock()
		for pos, l := range c.lightSources {
			if b.Contains(pos) {
				out = append(out, lighting.Source{Pos: pos, Strength: l.Strength})
			}
		}
		c.Mu.RUnlock()
	}
	return out
}

// LightAt уровни неба и предметов в вокселе. Без рендера всё освещено.
func (w *World) LightAt(p vec.Position) (sky, item byte) {
	if w.skyLight == nil {
		return lighting.MaxLight, 0
	}
	w.lightMu.RLock()
	defer w.lightMu.RUnlock()
	return w.skyLight.Get(p), w.itemLight.Get(p)
}

// ReadLight даёт доступ к мировым картам света под блокировкой чтения.
// Без рендера карты nil.
func (w *World) ReadLight(fn func(sky, item *lighting.Map)) {
	w.lightMu.RLock()
	defer w.lightMu.RUnlock()
	fn(w.skyLight, w.itemLight)
}
