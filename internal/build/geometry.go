package build

import (
	"github.com/annel0/blockverse/internal/lighting"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// Face видимая грань блока с яркостью четырёх углов
type Face struct {
	Pos   vec.Position
	Dir   vec.Face
	Light [4]float32
}

// Geometry результат сборки чанка: грани, сгруппированные по текстуре
type Geometry struct {
	Coords  vec.ChunkCoords
	Batches map[block.Texture][]Face
	Faces   int
	// MinRenderedFaceHeight нижняя отрисованная грань (для отсечения)
	MinRenderedFaceHeight int
}

// tangents две оси в плоскости грани
func tangents(f vec.Face) (u, v vec.Position) {
	switch f {
	case vec.FaceTop, vec.FaceBottom:
		return vec.Position{X: 1}, vec.Position{Z: 1}
	case vec.FaceFront, vec.FaceBack:
		return vec.Position{X: 1}, vec.Position{Y: 1}
	}
	return vec.Position{Z: 1}, vec.Position{Y: 1}
}

func scale(p vec.Position, k int) vec.Position {
	return vec.Position{X: p.X * k, Y: p.Y * k, Z: p.Z * k}
}

var cornerSigns = [4][2]int{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

// sample яркость соседнего вокселя; ok=false для непрозрачного
type sample struct {
	v  float32
	ok bool
}

// cornerLight среднее прозрачных образцов угла. Если обе боковые клетки
// непрозрачны, свет по диагонали не проходит и берётся самое тёмное из
// центра и диагонали.
func cornerLight(c, s1, s2, d sample) float32 {
	if !s1.ok && !s2.ok {
		return min(c.v, d.v)
	}
	sum, n := c.v, float32(1)
	for _, s := range [3]sample{s1, s2, d} {
		if s.ok {
			sum += s.v
			n++
		}
	}
	return sum / n
}

// builder читает мир во время сборки одного чанка. Вызывается под
// блокировкой чтения мировых карт света.
type builder struct {
	w         *world.World
	sky, item *lighting.Map
	skyFactor float32
	smooth    bool
}

func (b *builder) sample(p vec.Position) sample {
	if !b.w.Transparent(p) {
		return sample{}
	}
	if b.sky == nil {
		return sample{v: 1, ok: true}
	}
	return sample{v: lighting.Brightness(b.sky.Get(p), b.item.Get(p), b.skyFactor), ok: true}
}

// faceVisible видна ли грань блока t, обращённая к n. Грани на краю мира
// и между одинаковыми прозрачными блоками не рисуются.
func (b *builder) faceVisible(t block.Type, n vec.Position) bool {
	if !b.w.IsValidBlockLocation(n) {
		return false
	}
	nb := b.w.BlockAt(n)
	if !nb.IsTransparent() {
		return false
	}
	return nb.Type() != t
}

func (b *builder) faceLight(n vec.Position, f vec.Face) [4]float32 {
	c := b.sample(n)
	var out [4]float32
	if !b.smooth {
		for i := range out {
			out[i] = c.v
		}
		return out
	}
	u, v := tangents(f)
	for i, s := range cornerSigns {
		du, dv := scale(u, s[0]), scale(v, s[1])
		out[i] = cornerLight(c, b.sample(n.Add(du)), b.sample(n.Add(dv)), b.sample(n.Add(du).Add(dv)))
	}
	return out
}

// minBuildY нижняя граница обхода: на один уровень ниже самого мелкого
// глубочайшего прозрачного уровня среди чанка и четырёх соседей
func minBuildY(g *world.Grid, c *world.Chunk) int {
	lowest := c.DeepestTransparentLevel()
	for _, n := range g.Neighbours(c) {
		lowest = min(lowest, n.DeepestTransparentLevel())
	}
	return max(0, lowest-1)
}

// BuildGeometry собирает грани чанка
func BuildGeometry(w *world.World, c *world.Chunk, smooth bool) *Geometry {
	g := &Geometry{
		Coords:                c.Coords,
		Batches:               make(map[block.Texture][]Face),
		MinRenderedFaceHeight: vec.ChunkHeight,
	}
	minY := minBuildY(w.Grid(), c)
	origin := c.Coords.Origin()

	w.ReadLight(func(sky, item *lighting.Map) {
		b := &builder{w: w, sky: sky, item: item, skyFactor: w.SkyFactor(), smooth: smooth}
		for x := 0; x < vec.ChunkSize; x++ {
			for y := minY; y < vec.ChunkHeight; y++ {
				for z := 0; z < vec.ChunkSize; z++ {
					t := c.Block(x, y, z).Type()
					if t == block.Air {
						continue
					}
					p := vec.Position{X: origin.X + x, Y: y, Z: origin.Z + z}
					for _, f := range vec.AllFaces {
						n := p.Offset(f)
						if !b.faceVisible(t, n) {
							continue
						}
						tex := t.TextureFor(f)
						g.Batches[tex] = append(g.Batches[tex], Face{Pos: p, Dir: f, Light: b.faceLight(n, f)})
						g.Faces++
						g.MinRenderedFaceHeight = min(g.MinRenderedFaceHeight, y)
					}
				}
			}
		}
	})
	return g
}
