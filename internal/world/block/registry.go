package block

import "fmt"

// Type тип блока (байт на проводе расширяется до u16)
type Type uint8

// Константы типов блоков
const (
	Air Type = iota
	Water
	Dirt
	Grass
	Snow
	Sand
	Gravel
	Stone
	Cobble
	Wood
	Leaves
	Planks
	Glass
	Bricks
	Ice
	Clay

	typeCount // всегда последний
)

// Properties фиксированные свойства типа. Прозрачность и твёрдость
// независимы: вода прозрачна и не твёрдая, листва прозрачна, но твёрдая.
type Properties struct {
	Name        string
	Transparent bool
	Solid       bool
	Fluid       bool
	// Placeable можно ли поставить блок этого типа напрямую
	Placeable bool
	Textures  FaceTextures
}

var registry [typeCount]Properties

var registered [typeCount]bool

// Register добавляет свойства типа в таблицу
func Register(t Type, props Properties) {
	if t >= typeCount {
		panic(fmt.Sprintf("block: тип %d вне таблицы", t))
	}
	registry[t] = props
	registered[t] = true
}

// Properties возвращает свойства типа; для неизвестного типа свойства воздуха
func (t Type) Properties() Properties {
	if t >= typeCount || !registered[t] {
		return registry[Air]
	}
	return registry[t]
}

// IsValid зарегистрирован ли тип
func (t Type) IsValid() bool {
	return t < typeCount && registered[t]
}

// IsTransparent сокращение для свойств типа
func (t Type) IsTransparent() bool { return t.Properties().Transparent }

// IsSolid сокращение для свойств типа
func (t Type) IsSolid() bool { return t.Properties().Solid }

func (t Type) String() string {
	if !t.IsValid() {
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
	return registry[t].Name
}

// Types возвращает все зарегистрированные типы по порядку
func Types() []Type {
	out := make([]Type, 0, typeCount)
	for t := Type(0); t < typeCount; t++ {
		if registered[t] {
			out = append(out, t)
		}
	}
	return out
}

// Validate проверяет, что каждый объявленный тип описан в таблице
func Validate() error {
	for t := Type(0); t < typeCount; t++ {
		if !registered[t] {
			return fmt.Errorf("block: тип %d не зарегистрирован", t)
		}
	}
	return nil
}

func init() {
	Register(Air, Properties{Name: "Air", Transparent: true})
	Register(Water, Properties{Name: "Water", Transparent: true, Fluid: true, Placeable: true, Textures: uniform(TexWater)})
	Register(Dirt, Properties{Name: "Dirt", Solid: true, Placeable: true, Textures: uniform(TexDirt)})
	Register(Grass, Properties{Name: "Grass", Solid: true, Placeable: true, Textures: sided(TexGrassTop, TexGrassSide, TexDirt)})
	Register(Snow, Properties{Name: "Snow", Solid: true, Placeable: true, Textures: sided(TexSnowTop, TexSnowSide, TexDirt)})
	Register(Sand, Properties{Name: "Sand", Solid: true, Placeable: true, Textures: uniform(TexSand)})
	Register(Gravel, Properties{Name: "Gravel", Solid: true, Placeable: true, Textures: uniform(TexGravel)})
	Register(Stone, Properties{Name: "Stone", Solid: true, Textures: uniform(TexStone)})
	Register(Cobble, Properties{Name: "Cobble", Solid: true, Placeable: true, Textures: uniform(TexCobble)})
	Register(Wood, Properties{Name: "Wood", Solid: true, Placeable: true, Textures: sided(TexWoodTop, TexWoodSide, TexWoodTop)})
	Register(Leaves, Properties{Name: "Leaves", Transparent: true, Solid: true, Placeable: true, Textures: uniform(TexLeaves)})
	Register(Planks, Properties{Name: "Planks", Solid: true, Placeable: true, Textures: uniform(TexPlanks)})
	Register(Glass, Properties{Name: "Glass", Transparent: true, Solid: true, Placeable: true, Textures: uniform(TexGlass)})
	Register(Bricks, Properties{Name: "Bricks", Solid: true, Placeable: true, Textures: uniform(TexBricks)})
	Register(Ice, Properties{Name: "Ice", Solid: true, Placeable: true, Textures: uniform(TexIce)})
	Register(Clay, Properties{Name: "Clay", Solid: true, Placeable: true, Textures: uniform(TexClay)})
}
