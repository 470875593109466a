package block

import (
	"testing"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockPacking(t *testing.T) {
	b := NewOriented(Wood, 3)
	assert.Equal(t, Wood, b.Type())
	assert.Equal(t, uint8(3), b.Orientation())
	assert.False(t, b.Dirty())

	d := b.WithDirty(true)
	assert.True(t, d.Dirty())
	assert.Equal(t, Wood, d.Type(), "флаг не должен портить тип")
	assert.Equal(t, uint8(3), d.Orientation())
	assert.Equal(t, b, d.WithDirty(false))

	// старшие биты ориентации отбрасываются
	assert.Equal(t, uint8(1), NewOriented(Stone, 5).Orientation())
}

func TestTransparencyAndSolidityAreIndependent(t *testing.T) {
	assert.True(t, Water.IsTransparent())
	assert.False(t, Water.IsSolid())

	assert.True(t, Leaves.IsTransparent())
	assert.True(t, Leaves.IsSolid())

	assert.False(t, Stone.IsTransparent())
	assert.True(t, Stone.IsSolid())

	assert.True(t, Air.IsTransparent())
	assert.False(t, Air.IsSolid())
}

func TestRegistryComplete(t *testing.T) {
	require.NoError(t, Validate())
	assert.Len(t, Types(), int(typeCount))
	assert.False(t, Type(200).IsValid())
	assert.Equal(t, Air.Properties(), Type(200).Properties(), "неизвестный тип ведёт себя как воздух")
}

func TestTextures(t *testing.T) {
	assert.Equal(t, TexGrassTop, Grass.TextureFor(vec.FaceTop))
	assert.Equal(t, TexGrassSide, Grass.TextureFor(vec.FaceLeft))
	assert.Equal(t, TexDirt, Grass.TextureFor(vec.FaceBottom))
	assert.Equal(t, TexStone, Stone.TextureFor(vec.FaceFront))
}
