package block

import "github.com/annel0/blockverse/internal/vec"

// Texture идентификатор текстуры; грани группируются по нему в пакеты
type Texture uint8

const (
	TexNone Texture = iota
	TexWater
	TexDirt
	TexGrassTop
	TexGrassSide
	TexSnowTop
	TexSnowSide
	TexSand
	TexGravel
	TexStone
	TexCobble
	TexWoodTop
	TexWoodSide
	TexLeaves
	TexPlanks
	TexGlass
	TexBricks
	TexIce
	TexClay
)

// FaceTextures текстура для каждой из шести граней (индекс vec.Face)
type FaceTextures [6]Texture

func uniform(t Texture) FaceTextures {
	return FaceTextures{t, t, t, t, t, t}
}

func sided(top, side, bottom Texture) FaceTextures {
	var ft FaceTextures
	for _, f := range vec.AllFaces {
		ft[f] = side
	}
	ft[vec.FaceTop] = top
	ft[vec.FaceBottom] = bottom
	return ft
}

// TextureFor возвращает текстуру грани блока данного типа
func (t Type) TextureFor(f vec.Face) Texture {
	if !f.Valid() {
		return TexNone
	}
	return t.Properties().Textures[f]
}
