package world

import (
	"errors"

	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// ErrInvalidEdit общая причина отказа в правке
var ErrInvalidEdit = errors.New("недопустимая правка")

// Причины отказа; все оборачивают ErrInvalidEdit
var (
	ErrOutOfBounds   = editError("позиция вне мира")
	ErrWorldFloor    = editError("нижний слой мира нельзя разрушить")
	ErrNotPlaceable  = editError("этот блок нельзя поставить")
	ErrOccupied      = editError("место занято")
	ErrInsufficient  = editError("недостаточно блоков")
	ErrUnknownPlayer = editError("неизвестный игрок")
)

type invalidEdit struct{ msg string }

func editError(msg string) error { return &invalidEdit{msg: msg} }

func (e *invalidEdit) Error() string { return e.msg }

func (e *invalidEdit) Unwrap() error { return ErrInvalidEdit }

// ValidateEdit проверяет правку игрока до её применения
func (w *World) ValidateEdit(playerID int32, pos vec.Position, t block.Type) error {
	if !w.grid.Contains(pos) {
		return ErrOutOfBounds
	}
	if pos.Y == 0 && t == block.Air {
		return ErrWorldFloor
	}
	if t != block.Air && (!t.IsValid() || !t.Properties().Placeable) {
		return ErrNotPlaceable
	}
	p, ok := w.Player(playerID)
	if !ok {
		return ErrUnknownPlayer
	}
	if t.IsSolid() && w.bodyIn(physics.BlockBox(pos)) {
		return ErrOccupied
	}
	if t != block.Air && !p.Creative() && p.Count(t) <= 0 {
		return ErrInsufficient
	}
	return nil
}

// ValidateCuboid проверяет правку параллелепипеда (только творческий режим)
func (w *World) ValidateCuboid(playerID int32, a, b vec.Position, t block.Type) error {
	if !w.grid.Contains(a) || !w.grid.Contains(b) {
		return ErrOutOfBounds
	}
	p, ok := w.Player(playerID)
	if !ok {
		return ErrUnknownPlayer
	}
	if !p.Creative() {
		return ErrInsufficient
	}
	if t != block.Air && (!t.IsValid() || !t.Properties().Placeable) {
		return ErrNotPlaceable
	}
	if t.IsSolid() && w.bodyIn(physics.CuboidBox(a, b)) {
		return ErrOccupied
	}
	return nil
}

// bodyIn пересекает ли коробку тело игрока или существа
func (w *World) bodyIn(box physics.AABB) bool {
	for _, p := range w.Players() {
		if p.body().Intersects(box) {
			return true
		}
	}
	hit := false
	w.mobs.Range(func(_, v any) bool {
		hit = v.(*Mob).body().Intersects(box)
		return !hit
	})
	return hit
}

// SettleInventory учитывает правку в инвентаре: поставленный блок
// списывается, снятый возвращается игроку
func (w *World) SettleInventory(playerID int32, old, t block.Type) {
	p, ok := w.Player(playerID)
	if !ok || p.Creative() {
		return
	}
	if t != block.Air {
		p.Give(t, -1)
	}
	if t == block.Air && old != block.Air && old != block.Water {
		p.Give(old, 1)
	}
}
