package world

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/annel0/blockverse/internal/lighting"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// BlocksWireSize размер массива блоков одного чанка на проводе и на диске
const BlocksWireSize = vec.ChunkSize * vec.ChunkHeight * vec.ChunkSize * 2

// BuildState состояние чанка в конвейере сборки
type BuildState int32

const (
	BuildNotLoaded BuildState = iota
	BuildQueued
	BuildQueuedFar
	BuildQueuedDayNight
	BuildQueuedInitialFrustum
	BuildQueuedInitialFar
	BuildBuilding
	BuildBuilt
)

// IsQueued находится ли чанк в одной из очередей
func (s BuildState) IsQueued() bool {
	return s >= BuildQueued && s <= BuildQueuedInitialFar
}

func (s BuildState) String() string {
	switch s {
	case BuildNotLoaded:
		return "NotLoaded"
	case BuildQueued:
		return "Queued"
	case BuildQueuedFar:
		return "QueuedFar"
	case BuildQueuedDayNight:
		return "QueuedDayNight"
	case BuildQueuedInitialFrustum:
		return "QueuedInitialFrustum"
	case BuildQueuedInitialFar:
		return "QueuedInitialFar"
	case BuildBuilding:
		return "Building"
	case BuildBuilt:
		return "Built"
	}
	return fmt.Sprintf("BuildState(%d)", int32(s))
}

// BufferState состояние отрисовываемого ресурса чанка
type BufferState int32

const (
	BufferNotRenderable BufferState = iota
	BufferNeedsRebuild
	BufferRenderable
)

func (s BufferState) String() string {
	switch s {
	case BufferNotRenderable:
		return "NotRenderable"
	case BufferNeedsRebuild:
		return "NeedsRebuild"
	case BufferRenderable:
		return "Renderable"
	}
	return fmt.Sprintf("BufferState(%d)", int32(s))
}

// Chunk колонна мира 32x96x32 блоков
type Chunk struct {
	Coords vec.ChunkCoords

	// Mu защищает блоки, карту высот и статические предметы
	Mu sync.RWMutex

	blocks    [vec.ChunkSize][vec.ChunkHeight][vec.ChunkSize]block.Block
	heightMap [vec.ChunkSize][vec.ChunkSize]int
	deepest   int

	lightSources map[vec.Position]*LightSource
	clutter      map[vec.Position]*Clutter
	dynamic      map[int32]struct{}

	// временные карты света: живут только при начальной загрузке
	skyLight  *lighting.Map
	itemLight *lighting.Map

	// флаги клеточных автоматов
	WaterExpanding atomic.Bool
	GrassGrowing   atomic.Bool

	// BuildMu грубая блокировка пересборки и выгрузки одного чанка
	BuildMu     sync.Mutex
	buildState  atomic.Int32
	bufferState atomic.Int32
}

// NewChunk создаёт пустой (воздушный) чанк
func NewChunk(coords vec.ChunkCoords) *Chunk {
	return &Chunk{
		Coords:       coords,
		lightSources: make(map[vec.Position]*LightSource),
		clutter:      make(map[vec.Position]*Clutter),
		dynamic:      make(map[int32]struct{}),
	}
}

// Box область мира, занимаемая чанком
func (c *Chunk) Box() lighting.Box {
	return lighting.ChunkBox(c.Coords)
}

// Block возвращает блок по локальным координатам
func (c *Chunk) Block(x, y, z int) block.Block {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.blocks[x][y][z]
}

// SetRaw пишет блок без поддержки инвариантов. Только для генератора и
// загрузчика: после них обязателен RecomputeHeights.
func (c *Chunk) SetRaw(x, y, z int, b block.Block) {
	c.Mu.Lock()
	c.blocks[x][y][z] = b
	c.Mu.Unlock()
}

// Height карта высот по локальной колонке
func (c *Chunk) Height(x, z int) int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.heightMap[x][z]
}

// DeepestTransparentLevel самый низкий уровень с прозрачным блоком
func (c *Chunk) DeepestTransparentLevel() int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.deepest
}

// RecomputeHeights полный пересчёт карты высот и глубочайшего прозрачного уровня
func (c *Chunk) RecomputeHeights() {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	for x := 0; x < vec.ChunkSize; x++ {
		for z := 0; z < vec.ChunkSize; z++ {
			c.heightMap[x][z] = c.scanColumn(x, z, vec.ChunkHeight-1)
		}
	}
	c.deepest = c.scanDeepest()
}

// scanColumn ищет верхний непрозрачный блок не выше from; если его нет, 0.
// Вызывается под Mu.
func (c *Chunk) scanColumn(x, z, from int) int {
	for y := from; y >= 0; y-- {
		if !c.blocks[x][y][z].IsTransparent() {
			return y
		}
	}
	return 0
}

// scanDeepest самый низкий уровень с прозрачным блоком; если его нет,
// высота чанка. Вызывается под Mu.
func (c *Chunk) scanDeepest() int {
	for y := 0; y < vec.ChunkHeight; y++ {
		for x := 0; x < vec.ChunkSize; x++ {
			for z := 0; z < vec.ChunkSize; z++ {
				if c.blocks[x][y][z].IsTransparent() {
					return y
				}
			}
		}
	}
	return vec.ChunkHeight
}

// BuildState текущее состояние сборки
func (c *Chunk) BuildState() BuildState {
	return BuildState(c.buildState.Load())
}

// SetBuildState безусловно меняет состояние сборки
func (c *Chunk) SetBuildState(s BuildState) {
	c.buildState.Store(int32(s))
}

// CompareAndSwapBuildState меняет состояние, только если оно всё ещё old
func (c *Chunk) CompareAndSwapBuildState(old, s BuildState) bool {
	return c.buildState.CompareAndSwap(int32(old), int32(s))
}

// BufferState текущее состояние буфера
func (c *Chunk) BufferState() BufferState {
	return BufferState(c.bufferState.Load())
}

// SetBufferState безусловно меняет состояние буфера
func (c *Chunk) SetBufferState(s BufferState) {
	c.bufferState.Store(int32(s))
}

// CompareAndSwapBufferState меняет состояние буфера, только если оно всё ещё old
func (c *Chunk) CompareAndSwapBufferState(old, s BufferState) bool {
	return c.bufferState.CompareAndSwap(int32(old), int32(s))
}

// WriteBlocks пишет массив блоков в порядке x, y, z (u16 LE)
func (c *Chunk) WriteBlocks(w io.Writer) error {
	return c.writeBlocks(w, true)
}

// writeBlocks без keepDirty сбрасывает флаг изменения: он не часть
// состояния мира, которое сверяют копии
func (c *Chunk) writeBlocks(w io.Writer, keepDirty bool) error {
	buf := make([]byte, BlocksWireSize)
	c.Mu.RLock()
	i := 0
	for x := 0; x < vec.ChunkSize; x++ {
		for y := 0; y < vec.ChunkHeight; y++ {
			for z := 0; z < vec.ChunkSize; z++ {
				b := c.blocks[x][y][z]
				if !keepDirty {
					b = b.WithDirty(false)
				}
				binary.LittleEndian.PutUint16(buf[i:], uint16(b))
				i += 2
			}
		}
	}
	c.Mu.RUnlock()
	_, err := w.Write(buf)
	return err
}

// ReadBlocks читает массив блоков, записанный WriteBlocks
func (c *Chunk) ReadBlocks(r io.Reader) error {
	buf := make([]byte, BlocksWireSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("блоки чанка %v: %w", c.Coords, err)
	}
	c.Mu.Lock()
	i := 0
	for x := 0; x < vec.ChunkSize; x++ {
		for y := 0; y < vec.ChunkHeight; y++ {
			for z := 0; z < vec.ChunkSize; z++ {
				c.blocks[x][y][z] = block.Block(binary.LittleEndian.Uint16(buf[i:]))
				i += 2
			}
		}
	}
	c.Mu.Unlock()
	return nil
}
