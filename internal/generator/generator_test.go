package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

func newWorld(t *testing.T) *world.World {
	t.Helper()
	s := world.DefaultSettings()
	s.SizeChunksX, s.SizeChunksZ = 2, 2
	w, err := world.New(s, world.RoleServer)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, b := newWorld(t), newWorld(t)
	require.NoError(t, New(7).Generate(context.Background(), a))
	require.NoError(t, New(7).Generate(context.Background(), b))

	assert.Equal(t, a.Digest(), b.Digest(), "одинаковый сид даёт одинаковый мир")

	c := newWorld(t)
	require.NoError(t, New(8).Generate(context.Background(), c))
	assert.NotEqual(t, a.Digest(), c.Digest())
}

func TestGeneratedColumnsAreFilled(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, New(3).Generate(context.Background(), w))
	require.NoError(t, w.FinalizeLoad(context.Background()))

	for x := 0; x < 64; x += 7 {
		for z := 0; z < 64; z += 7 {
			assert.GreaterOrEqual(t, w.Height(x, z), minTerrain, "колонка (%d,%d)", x, z)
		}
	}
	assert.Equal(t, block.Stone, w.BlockType(vec.Position{}), "нижний слой всегда камень")
}

func TestMobsStandOnGrass(t *testing.T) {
	a, b := newWorld(t), newWorld(t)
	require.NoError(t, New(11).Generate(context.Background(), a))
	require.NoError(t, New(11).Generate(context.Background(), b))

	mobs := a.MobList()
	require.Equal(t, len(mobs), len(b.MobList()))
	assert.LessOrEqual(t, len(mobs), 4*New(11).MobsPerChunk)
	for i, m := range mobs {
		assert.Equal(t, b.MobList()[i].Coords, m.Coords, "расселение детерминировано")
		feet := m.Coords.ToPosition()
		assert.Equal(t, block.Grass, a.BlockType(feet.Below()), "существо стоит на траве")
		assert.Equal(t, block.Air, a.BlockType(feet))
	}

	none := New(11)
	none.MobsPerChunk = 0
	c := newWorld(t)
	require.NoError(t, none.Generate(context.Background(), c))
	assert.Zero(t, c.Mobs())
}

func TestNoiseRange(t *testing.T) {
	n := NewNoise(1, 0.05)
	for i := 0; i < 200; i++ {
		v := n.At(i*3, i*5)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}
