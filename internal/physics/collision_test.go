package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/blockverse/internal/vec"
)

func TestPlayerBodyCoversTwoBlocks(t *testing.T) {
	body := PlayerCollider.At(vec.NewCoords(5.5, 10, 5.5))
	assert.Equal(t, []vec.Position{{X: 5, Y: 10, Z: 5}, {X: 5, Y: 11, Z: 5}}, body.Blocks())

	assert.True(t, body.Intersects(BlockBox(vec.Position{X: 5, Y: 11, Z: 5})))
	assert.False(t, body.Intersects(BlockBox(vec.Position{X: 5, Y: 12, Z: 5})), "голова ниже 12")
	assert.False(t, body.Intersects(BlockBox(vec.Position{X: 5, Y: 9, Z: 5})), "стоит на блоке, касание не пересечение")
	assert.False(t, body.Intersects(BlockBox(vec.Position{X: 6, Y: 10, Z: 5})))
}

func TestBodyOnBlockEdgeTouchesNeighbour(t *testing.T) {
	body := PlayerCollider.At(vec.NewCoords(6.1, 10, 5.5))
	assert.True(t, body.Intersects(BlockBox(vec.Position{X: 5, Y: 10, Z: 5})))
	assert.True(t, body.Intersects(BlockBox(vec.Position{X: 6, Y: 10, Z: 5})))
	assert.Len(t, body.Blocks(), 4)
}

func TestCuboidBoxAnyCornerOrder(t *testing.T) {
	box := CuboidBox(vec.Position{X: 4, Y: 2, Z: 9}, vec.Position{X: 1, Y: 5, Z: 7})
	assert.Equal(t, AABB{Min: [3]float32{1, 2, 7}, Max: [3]float32{5, 6, 10}}, box)
	assert.Len(t, box.Blocks(), 4*4*3)
}

func TestCanStand(t *testing.T) {
	solid := func(p vec.Position) bool { return p.Y <= 4 || p == vec.Position{X: 3, Y: 6, Z: 3} }
	assert.True(t, PlayerCollider.CanStand(vec.NewCoords(1.5, 5, 1.5), solid))
	assert.False(t, PlayerCollider.CanStand(vec.NewCoords(1.5, 4.5, 1.5), solid), "ноги в земле")
	assert.False(t, PlayerCollider.CanStand(vec.NewCoords(3.5, 5, 3.5), solid), "голова в блоке")
}
