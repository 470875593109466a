package vec

// Размеры чанка в блоках. Чанк занимает всю высоту мира.
const (
	ChunkSize   = 32
	ChunkHeight = 96

	chunkShift = 5 // log2(ChunkSize)
	chunkMask  = ChunkSize - 1
)

// Размеры значимых типов на проводе
const (
	PositionWireSize = 12 // 3 x int32
	CoordsWireSize   = 20 // 5 x float32
)

// Position абсолютная целочисленная координата блока в мире
type Position struct {
	X int
	Y int
	Z int
}

// NewPosition создаёт позицию из трёх координат
func NewPosition(x, y, z int) Position {
	return Position{X: x, Y: y, Z: z}
}

// Add складывает две позиции
func (p Position) Add(other Position) Position {
	return Position{X: p.X + other.X, Y: p.Y + other.Y, Z: p.Z + other.Z}
}

// Offset возвращает соседнюю позицию по грани
func (p Position) Offset(f Face) Position {
	return p.Add(f.Delta())
}

// Above возвращает позицию над блоком
func (p Position) Above() Position { return Position{X: p.X, Y: p.Y + 1, Z: p.Z} }

// Below возвращает позицию под блоком
func (p Position) Below() Position { return Position{X: p.X, Y: p.Y - 1, Z: p.Z} }

// ChunkCoords возвращает координаты чанка, содержащего блок
func (p Position) ChunkCoords() ChunkCoords {
	return ChunkCoords{X: p.X >> chunkShift, Z: p.Z >> chunkShift}
}

// Local возвращает координаты внутри чанка
func (p Position) Local() (x, y, z int) {
	return p.X & chunkMask, p.Y, p.Z & chunkMask
}

// IsOnChunkBorder сообщает, лежит ли блок на боковой грани своего чанка
func (p Position) IsOnChunkBorder() bool {
	x, _, z := p.Local()
	return x == 0 || z == 0 || x == chunkMask || z == chunkMask
}

// ToCoords возвращает координаты центра нижней грани блока
func (p Position) ToCoords() Coords {
	return Coords{Xf: float32(p.X) + 0.5, Yf: float32(p.Y), Zf: float32(p.Z) + 0.5}
}

// DistanceSq возвращает квадрат расстояния до другой позиции
func (p Position) DistanceSq(other Position) int {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// Face направление одной из шести граней блока
type Face uint8

const (
	FaceFront  Face = iota // +Z
	FaceRight              // +X
	FaceTop                // +Y
	FaceLeft               // -X
	FaceBottom             // -Y
	FaceBack               // -Z
)

// AllFaces перечисляет грани в фиксированном порядке обхода
var AllFaces = [6]Face{FaceFront, FaceRight, FaceTop, FaceLeft, FaceBottom, FaceBack}

var faceDeltas = [6]Position{
	FaceFront:  {Z: 1},
	FaceRight:  {X: 1},
	FaceTop:    {Y: 1},
	FaceLeft:   {X: -1},
	FaceBottom: {Y: -1},
	FaceBack:   {Z: -1},
}

// Delta возвращает единичное смещение в направлении грани
func (f Face) Delta() Position {
	if int(f) >= len(faceDeltas) {
		return Position{}
	}
	return faceDeltas[f]
}

// Opposite возвращает противоположную грань
func (f Face) Opposite() Face {
	switch f {
	case FaceFront:
		return FaceBack
	case FaceBack:
		return FaceFront
	case FaceRight:
		return FaceLeft
	case FaceLeft:
		return FaceRight
	case FaceTop:
		return FaceBottom
	default:
		return FaceTop
	}
}

// Valid сообщает, является ли значение допустимой гранью
func (f Face) Valid() bool {
	return f <= FaceBack
}

func (f Face) String() string {
	switch f {
	case FaceFront:
		return "front"
	case FaceRight:
		return "right"
	case FaceTop:
		return "top"
	case FaceLeft:
		return "left"
	case FaceBottom:
		return "bottom"
	case FaceBack:
		return "back"
	}
	return "invalid"
}
