package world

import (
	"sort"
	"sync"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// StaticKind вид статического предмета
type StaticKind uint8

const (
	StaticLightSource StaticKind = iota + 1
	StaticClutter
)

// LightSource источник света, прикреплённый к грани соседнего блока
type LightSource struct {
	ID       int32
	Position vec.Position
	// AttachedTo направление на опорный блок
	AttachedTo vec.Face
	Strength   byte
}

// Support позиция опорного блока
func (l *LightSource) Support() vec.Position {
	return l.Position.Offset(l.AttachedTo)
}

// Clutter мелкий декоративный предмет, стоящий на блоке снизу
type Clutter struct {
	ID       int32
	Position vec.Position
	Kind     uint8
}

// BlockItem выпавший блок, летящий или лежащий в мире
type BlockItem struct {
	ID        int32
	BlockType block.Type

	mu       sync.Mutex
	coords   vec.Coords
	velocity [3]float32
	falling  bool
}

// NewBlockItem создаёт предмет-блок
func NewBlockItem(id int32, t block.Type, coords vec.Coords, velocity [3]float32) *BlockItem {
	return &BlockItem{ID: id, BlockType: t, coords: coords, velocity: velocity}
}

// Coords текущая позиция
func (b *BlockItem) Coords() vec.Coords {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.coords
}

// Velocity текущая скорость
func (b *BlockItem) Velocity() [3]float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.velocity
}

// Falling падает ли предмет
func (b *BlockItem) Falling() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.falling
}

// SetFalling отмечает предмет падающим (или лежащим)
func (b *BlockItem) SetFalling(v bool) {
	b.mu.Lock()
	b.falling = v
	b.mu.Unlock()
}

func (b *BlockItem) land() {
	b.mu.Lock()
	b.falling = false
	b.velocity = [3]float32{}
	b.mu.Unlock()
}

// Mob существо. Пока существа не ходят, их позиция не меняется.
type Mob struct {
	ID     int32
	Kind   uint8
	Coords vec.Coords
}

func (m *Mob) body() physics.AABB {
	return physics.MobCollider.At(m.Coords)
}

// Player игрок. Поля после создания меняются только под mu.
type Player struct {
	ID   int32
	Name string

	mu        sync.Mutex
	coords    vec.Coords
	creative  bool
	inventory map[block.Type]int
}

// NewPlayer создаёт игрока
func NewPlayer(id int32, name string, coords vec.Coords, creative bool) *Player {
	return &Player{ID: id, Name: name, coords: coords, creative: creative, inventory: make(map[block.Type]int)}
}

// Coords текущая позиция игрока
func (p *Player) Coords() vec.Coords {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coords
}

// Move перемещает игрока
func (p *Player) Move(c vec.Coords) {
	p.mu.Lock()
	p.coords = c
	p.mu.Unlock()
}

// Creative включён ли творческий режим
func (p *Player) Creative() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creative
}

// SetCreative переключает творческий режим
func (p *Player) SetCreative(v bool) {
	p.mu.Lock()
	p.creative = v
	p.mu.Unlock()
}

// Count сколько блоков типа есть у игрока
func (p *Player) Count(t block.Type) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inventory[t]
}

// Give добавляет (или при n<0 забирает) блоки
func (p *Player) Give(t block.Type, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inventory[t] = max(p.inventory[t]+n, 0)
}

// body коробка тела игрока
func (p *Player) body() physics.AABB {
	return physics.PlayerCollider.At(p.Coords())
}

// --- статические предметы чанка ---

// LightSources снимок источников света чанка, упорядоченный по id
func (c *Chunk) LightSources() []*LightSource {
	c.Mu.RLock()
	out := make([]*LightSource, 0, len(c.lightSources))
	for _, l := range c.lightSources {
		out = append(out, l)
	}
	c.Mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clutter снимок мелких предметов чанка, упорядоченный по id
func (c *Chunk) Clutter() []*Clutter {
	c.Mu.RLock()
	out := make([]*Clutter, 0, len(c.clutter))
	for _, cl := range c.clutter {
		out = append(out, cl)
	}
	c.Mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DynamicItemIDs идентификаторы предметов-блоков внутри чанка
func (c *Chunk) DynamicItemIDs() []int32 {
	c.Mu.RLock()
	out := make([]int32, 0, len(c.dynamic))
	for id := range c.dynamic {
		out = append(out, id)
	}
	c.Mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
