package block

import "fmt"

// Block упакованное слово блока:
//
//	биты 0-7  тип блока
//	биты 8-9  ориентация (0-3)
//	бит  10   флаг "грязный" (блок изменён после загрузки)
type Block uint16

const (
	typeMask        = 0x00FF
	orientationMask = 0x0300
	orientationShft = 8
	dirtyBit        = 0x0400
)

// New создаёт блок указанного типа с нулевой ориентацией
func New(t Type) Block {
	return Block(t)
}

// NewOriented создаёт блок с ориентацией (берутся младшие 2 бита)
func NewOriented(t Type, orientation uint8) Block {
	return Block(uint16(t) | uint16(orientation&0x3)<<orientationShft)
}

// Type возвращает тип блока
func (b Block) Type() Type {
	return Type(b & typeMask)
}

// Orientation возвращает ориентацию блока
func (b Block) Orientation() uint8 {
	return uint8((b & orientationMask) >> orientationShft)
}

// Dirty сообщает, изменялся ли блок
func (b Block) Dirty() bool {
	return b&dirtyBit != 0
}

// WithDirty возвращает копию блока с установленным/сброшенным флагом
func (b Block) WithDirty(dirty bool) Block {
	if dirty {
		return b | dirtyBit
	}
	return b &^ dirtyBit
}

// IsTransparent пропускает ли блок свет (см. таблицу свойств типа)
func (b Block) IsTransparent() bool {
	return b.Type().Properties().Transparent
}

// IsSolid является ли блок твёрдым для столкновений и опоры
func (b Block) IsSolid() bool {
	return b.Type().Properties().Solid
}

func (b Block) String() string {
	return fmt.Sprintf("%s/%d", b.Type(), b.Orientation())
}
