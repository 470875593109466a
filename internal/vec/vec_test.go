package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionChunkCoordsAndLocal(t *testing.T) {
	p := NewPosition(70, 40, 33)
	assert.Equal(t, ChunkCoords{X: 2, Z: 1}, p.ChunkCoords())

	x, y, z := p.Local()
	assert.Equal(t, 6, x)
	assert.Equal(t, 40, y)
	assert.Equal(t, 1, z)
	assert.False(t, p.IsOnChunkBorder())
	assert.True(t, NewPosition(31, 5, 10).IsOnChunkBorder())
	assert.True(t, NewPosition(32, 5, 10).IsOnChunkBorder())
}

func TestFaceOppositeRoundTrip(t *testing.T) {
	for _, f := range AllFaces {
		assert.Equal(t, f, f.Opposite().Opposite(), "грань %s", f)
		d := f.Delta().Add(f.Opposite().Delta())
		assert.Equal(t, Position{}, d, "смещения противоположных граней должны взаимно гаситься")
	}
}

func TestCoordsToPosition(t *testing.T) {
	c := NewCoords(-0.5, 3.99, 12.01)
	assert.Equal(t, Position{X: -1, Y: 3, Z: 12}, c.ToPosition())
	assert.Equal(t, NewPosition(4, 7, 9), NewPosition(4, 7, 9).ToCoords().ToPosition())
}
