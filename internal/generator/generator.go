package generator

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// BiomeType тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeForest
	BiomeMountains
	BiomeWater
	BiomeDeepWater
)

// Пороги нормированной высоты
const (
	DeepWaterMax    = 0.20 // Ниже - глубинная вода
	ShallowWaterMax = 0.30 // Ниже - мелководье
	MountainStart   = 0.80 // Выше - горы
	SnowStart       = 0.88 // Выше - снежные вершины
)

// Уровни рельефа в блоках
const (
	minTerrain = 8
	maxTerrain = 64
)

// WaterLevel уровень воды в блоках
var (
	shallowWaterMax = ShallowWaterMax
	WaterLevel      = minTerrain + int(shallowWaterMax*(maxTerrain-minTerrain))
)

// mobKinds число видов существ
const mobKinds = 3

// Generator процедурный генератор рельефа. Пишет блоки напрямую, а
// инварианты восстанавливает барьер готовности мира.
type Generator struct {
	Seed          int64
	ForestDensity float64 // доля колонок равнин с деревом
	MobsPerChunk  int     // попыток поставить существо на чанк

	height *Noise
	biome  *Noise
}

// New создаёт генератор
func New(seed int64) *Generator {
	return &Generator{
		Seed:          seed,
		ForestDensity: 0.02,
		MobsPerChunk:  2,
		height:        NewNoise(seed, 0.02),
		biome:         NewNoise(seed+42, 0.01),
	}
}

// Generate заполняет все чанки мира. Каждый чанк независим и
// детерминирован по сиду и своим координатам.
func (g *Generator) Generate(ctx context.Context, w *world.World) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, c := range w.Grid().All() {
		c := c
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			g.GenerateChunk(c)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("генерация мира: %w", err)
	}
	// ID существ выдаются по порядку, поэтому расселение идёт в одну нить
	for _, c := range w.Grid().All() {
		g.spawnMobs(w, c)
	}
	return nil
}

// GenerateChunk заполняет один чанк
func (g *Generator) GenerateChunk(c *world.Chunk) {
	chunkSeed := g.Seed + int64(c.Coords.X*31) + int64(c.Coords.Z*17)
	rng := rand.New(rand.NewSource(chunkSeed))
	origin := c.Coords.Origin()

	for x := 0; x < vec.ChunkSize; x++ {
		for z := 0; z < vec.ChunkSize; z++ {
			h := g.height.At(origin.X+x, origin.Z+z)
			biome := g.biomeType(h, g.biome.At(origin.X+x, origin.Z+z))
			top := minTerrain + int(h*(maxTerrain-minTerrain))

			for y := 0; y <= top; y++ {
				c.SetRaw(x, y, z, block.New(g.blockAt(y, top, biome)))
			}
			for y := top + 1; y <= WaterLevel; y++ {
				c.SetRaw(x, y, z, block.New(block.Water))
			}

			if (biome == BiomeForest && rng.Float64() < 0.15) || (biome == BiomePlains && rng.Float64() < g.ForestDensity) {
				g.placeTree(c, x, top+1, z, rng)
			}
		}
	}
}

// spawnMobs ставит до MobsPerChunk существ на открытую траву чанка
func (g *Generator) spawnMobs(w *world.World, c *world.Chunk) {
	rng := rand.New(rand.NewSource(g.Seed ^ int64(c.Coords.X*7919+c.Coords.Z*104729)))
	origin := c.Coords.Origin()
	for i := 0; i < g.MobsPerChunk; i++ {
		x, z := rng.Intn(vec.ChunkSize), rng.Intn(vec.ChunkSize)
		kind := uint8(rng.Intn(mobKinds))
		y := vec.ChunkHeight - 1
		for y > 0 && c.Block(x, y, z).Type() == block.Air {
			y--
		}
		if c.Block(x, y, z).Type() != block.Grass || y+2 >= vec.ChunkHeight {
			continue
		}
		w.AddMob(&world.Mob{
			Kind:   kind,
			Coords: vec.NewCoords(float32(origin.X+x)+0.5, float32(y+1), float32(origin.Z+z)+0.5),
		})
	}
}

// blockAt тип блока на уровне y колонки высотой top
func (g *Generator) blockAt(y, top int, biome BiomeType) block.Type {
	switch {
	case y < top-3:
		return block.Stone
	case y < top:
		switch biome {
		case BiomeDesert:
			return block.Sand
		case BiomeMountains:
			return block.Stone
		}
		return block.Dirt
	}
	return g.surfaceBlock(biome, top)
}

// surfaceBlock верхний блок колонки
func (g *Generator) surfaceBlock(biome BiomeType, top int) block.Type {
	switch biome {
	case BiomeDesert:
		return block.Sand
	case BiomeWater, BiomeDeepWater:
		if top < WaterLevel-4 {
			return block.Clay
		}
		return block.Gravel
	case BiomeMountains:
		if float64(top-minTerrain)/(maxTerrain-minTerrain) > SnowStart {
			return block.Snow
		}
		return block.Stone
	}
	return block.Grass
}

// biomeType определяет биом по высоте и шуму биомов
func (g *Generator) biomeType(height, biomeValue float64) BiomeType {
	if height < DeepWaterMax {
		return BiomeDeepWater
	}
	if height < ShallowWaterMax {
		return BiomeWater
	}
	if height > MountainStart {
		return BiomeMountains
	}
	if biomeValue < 0.35 {
		return BiomeDesert
	} else if biomeValue > 0.65 {
		return BiomeForest
	}
	return BiomePlains
}

// placeTree ставит дерево, только если крона целиком внутри чанка
func (g *Generator) placeTree(c *world.Chunk, x, y, z int, rng *rand.Rand) {
	treeHeight := 3 + rng.Intn(3) // Высота дерева 3-5 блоков
	if x < 2 || z < 2 || x > vec.ChunkSize-3 || z > vec.ChunkSize-3 || y+treeHeight+1 >= vec.ChunkHeight {
		return
	}
	for dy := 0; dy < treeHeight; dy++ {
		c.SetRaw(x, y+dy, z, block.New(block.Wood))
	}
	crown := y + treeHeight
	for dx := -2; dx <= 2; dx++ {
		for dz := -2; dz <= 2; dz++ {
			for dy := -1; dy <= 1; dy++ {
				if dx == 0 && dz == 0 && dy < 0 {
					continue
				}
				if dx*dx+dz*dz+dy*dy > 5 {
					continue
				}
				c.SetRaw(x+dx, crown+dy, z+dz, block.New(block.Leaves))
			}
		}
	}
}
