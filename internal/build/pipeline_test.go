package build_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/build"
	"github.com/annel0/blockverse/internal/lighting"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// flatWorld мир size x size чанков с каменным полом y=0..ground
func flatWorld(t *testing.T, role world.Role, size, ground int) *world.World {
	t.Helper()
	s := world.DefaultSettings()
	s.SizeChunksX, s.SizeChunksZ = size, size
	w, err := world.New(s, role)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	for _, c := range w.Grid().All() {
		for x := 0; x < vec.ChunkSize; x++ {
			for z := 0; z < vec.ChunkSize; z++ {
				for y := 0; y <= ground; y++ {
					c.SetRaw(x, y, z, block.New(block.Stone))
				}
			}
		}
	}
	require.NoError(t, w.FinalizeLoad(context.Background()))
	return w
}

type recordingRenderer struct {
	mu       sync.Mutex
	uploaded []vec.ChunkCoords
	released []vec.ChunkCoords
}

func (r *recordingRenderer) Upload(c *world.Chunk, g *build.Geometry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploaded = append(r.uploaded, c.Coords)
}

func (r *recordingRenderer) Release(c *world.Chunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, c.Coords)
}

func TestFlatChunkGeometry(t *testing.T) {
	w := flatWorld(t, world.RoleServer, 1, 8)
	c := w.Grid().Chunk(vec.ChunkCoords{})

	g := build.BuildGeometry(w, c, false)

	assert.Equal(t, vec.ChunkSize*vec.ChunkSize, g.Faces, "видны только верхние грани")
	require.Len(t, g.Batches[block.TexStone], vec.ChunkSize*vec.ChunkSize)
	assert.Equal(t, 8, g.MinRenderedFaceHeight)
	for _, f := range g.Batches[block.TexStone] {
		require.Equal(t, vec.FaceTop, f.Dir)
	}
}

func TestGeometryHoleExposesSideFaces(t *testing.T) {
	w := flatWorld(t, world.RoleServer, 1, 8)
	c := w.Grid().Chunk(vec.ChunkCoords{})
	w.PlaceBlock(vec.Position{X: 10, Y: 8, Z: 10}, block.Air, false)

	g := build.BuildGeometry(w, c, false)

	// яма: минус одна верхняя грань, плюс дно и четыре стенки
	assert.Equal(t, vec.ChunkSize*vec.ChunkSize-1+1+4, g.Faces)
	assert.Equal(t, 7, g.MinRenderedFaceHeight)
}

func TestSmoothLightOnOpenGround(t *testing.T) {
	w := flatWorld(t, world.RoleClient, 1, 8)
	c := w.Grid().Chunk(vec.ChunkCoords{})

	g := build.BuildGeometry(w, c, true)
	want := lighting.Brightness(lighting.MaxLight, 0, w.SkyFactor())
	for _, f := range g.Batches[block.TexStone] {
		for _, v := range f.Light {
			require.InDelta(t, want, v, 1e-6, "над картой высот полный свет неба")
		}
	}
}

func TestBuildStateMachine(t *testing.T) {
	w := flatWorld(t, world.RoleClient, 1, 8)
	p := build.NewPipeline(w, build.Options{Workers: 1})
	c := w.Grid().Chunk(vec.ChunkCoords{})
	consumer, err := p.Handoff().Consumer()
	require.NoError(t, err)
	r := &recordingRenderer{}

	p.QueueChanged(c)
	assert.Equal(t, world.BuildNotLoaded, c.BuildState(), "незагруженный чанк не ставится в очередь")

	queued, unloaded := p.UpdateVisibility(vec.ChunkCoords{}, 4)
	assert.Equal(t, 1, queued)
	assert.Zero(t, unloaded)
	assert.Equal(t, world.BuildQueuedInitialFrustum, c.BuildState())

	assert.Equal(t, 1, p.BuildNow())
	assert.Equal(t, world.BuildBuilt, c.BuildState())
	assert.Equal(t, world.BufferNotRenderable, c.BufferState(), "буферизация только в потребителе")

	assert.Equal(t, 1, consumer.Drain(r, 0))
	assert.Equal(t, world.BufferRenderable, c.BufferState())

	// правка после Built проходит полный путь постановки
	w.PlaceBlock(vec.Position{X: 3, Y: 9, Z: 3}, block.Dirt, false)
	w.WaitIdle()
	assert.Equal(t, world.BuildQueued, c.BuildState())
	assert.Equal(t, 1, p.BuildNow())
	assert.Equal(t, world.BufferNeedsRebuild, c.BufferState())
	assert.Equal(t, 1, consumer.Drain(r, 0))
	assert.Equal(t, world.BufferRenderable, c.BufferState())
	assert.Len(t, r.uploaded, 2)
}

func TestDrainSkipsChunkNoLongerBuilt(t *testing.T) {
	w := flatWorld(t, world.RoleClient, 1, 8)
	p := build.NewPipeline(w, build.Options{Workers: 1})
	c := w.Grid().Chunk(vec.ChunkCoords{})
	consumer, err := p.Handoff().Consumer()
	require.NoError(t, err)

	p.Enqueue(c, world.BuildQueued)
	require.Equal(t, 1, p.BuildNow())
	p.QueueChanged(c)

	r := &recordingRenderer{}
	assert.Zero(t, consumer.Drain(r, 0), "чанк снова в очереди, старую геометрию не буферизуем")
	assert.Equal(t, world.BufferNotRenderable, c.BufferState())
}

func TestStaleEntryAfterUnload(t *testing.T) {
	w := flatWorld(t, world.RoleClient, 1, 8)
	p := build.NewPipeline(w, build.Options{Workers: 1})
	c := w.Grid().Chunk(vec.ChunkCoords{})
	consumer, err := p.Handoff().Consumer()
	require.NoError(t, err)

	p.Enqueue(c, world.BuildQueued)
	p.Unload(c)

	assert.Zero(t, p.BuildNow())
	assert.Equal(t, int64(1), p.Stats().Stale)
	assert.Equal(t, world.BuildNotLoaded, c.BuildState())
	assert.Equal(t, world.BufferNotRenderable, c.BufferState())

	r := &recordingRenderer{}
	consumer.Drain(r, 0)
	assert.Equal(t, []vec.ChunkCoords{{}}, r.released)
}

func TestNearQueueServedBeforeFar(t *testing.T) {
	w := flatWorld(t, world.RoleClient, 2, 4)
	p := build.NewPipeline(w, build.Options{Workers: 1})
	consumer, err := p.Handoff().Consumer()
	require.NoError(t, err)

	far := w.Grid().Chunk(vec.ChunkCoords{X: 1, Z: 1})
	near := w.Grid().Chunk(vec.ChunkCoords{X: 0, Z: 1})
	p.Enqueue(far, world.BuildQueuedInitialFar)
	p.Enqueue(near, world.BuildQueued)

	st := p.Stats()
	assert.Equal(t, 1, st.Near)
	assert.Equal(t, 1, st.Far)

	require.Equal(t, 2, p.BuildNow())
	r := &recordingRenderer{}
	require.Equal(t, 2, consumer.Drain(r, 0))
	assert.Equal(t, []vec.ChunkCoords{near.Coords, far.Coords}, r.uploaded)
}

func TestVisibilityUnloadsDistantChunks(t *testing.T) {
	w := flatWorld(t, world.RoleClient, 4, 4)
	p := build.NewPipeline(w, build.Options{Workers: 1})

	queued, _ := p.UpdateVisibility(vec.ChunkCoords{}, 10)
	assert.Equal(t, 16, queued)
	p.BuildNow()

	_, unloaded := p.UpdateVisibility(vec.ChunkCoords{}, 1)
	// в радиусе 1 остаются (0,0), (1,0), (0,1)
	assert.Equal(t, 13, unloaded)
	for _, c := range w.Grid().All() {
		if c.Coords.DistanceTo(vec.ChunkCoords{}) > 1 {
			assert.Equal(t, world.BuildNotLoaded, c.BuildState())
			assert.Equal(t, world.BufferNotRenderable, c.BufferState())
		} else {
			assert.Equal(t, world.BuildBuilt, c.BuildState())
		}
	}
}

func TestWorkersBuildEverything(t *testing.T) {
	w := flatWorld(t, world.RoleClient, 3, 6)
	p := build.NewPipeline(w, build.Options{Workers: 3, Smooth: true})
	p.Start()
	defer p.Stop()

	p.UpdateVisibility(vec.ChunkCoords{X: 1, Z: 1}, 5)
	p.WaitIdle()
	for _, c := range w.Grid().All() {
		assert.Equal(t, world.BuildBuilt, c.BuildState(), "чанк %v", c.Coords)
	}
	assert.Equal(t, int64(9), p.Stats().Built)

	assert.Equal(t, 9, p.QueueDayNight())
	p.WaitIdle()
	assert.Equal(t, int64(18), p.Stats().Built)
}

func TestSingleConsumer(t *testing.T) {
	h := build.NewHandoff()
	_, err := h.Consumer()
	require.NoError(t, err)
	_, err = h.Consumer()
	assert.ErrorIs(t, err, build.ErrConsumerTaken)
}

func TestWorkerCount(t *testing.T) {
	assert.GreaterOrEqual(t, build.WorkerCount(), 1)
}
