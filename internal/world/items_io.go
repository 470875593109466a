package world

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// maxItemRecords предел записей в секции предметов
const maxItemRecords = 1 << 20

type staticRecord struct {
	ID      int32
	Kind    uint8
	X, Y, Z int32
	Face    uint8
	Param   uint8
}

type blockItemRecord struct {
	ID       int32
	Type     uint16
	Coords   [5]float32
	Velocity [3]float32
	Falling  uint8
}

type mobRecord struct {
	ID     int32
	Kind   uint8
	Coords [5]float32
}

// WriteItems пишет секцию предметов:
// i32 N | N статических предметов | i32 M | M предметов-блоков | i32 K | K существ.
// Статические идут по чанкам в порядке сетки, внутри чанка по ID.
func (w *World) WriteItems(dst io.Writer) error {
	var static []staticRecord
	for _, c := range w.grid.All() {
		for _, l := range c.LightSources() {
			static = append(static, staticRecord{
				ID: l.ID, Kind: uint8(StaticLightSource),
				X: int32(l.Position.X), Y: int32(l.Position.Y), Z: int32(l.Position.Z),
				Face: uint8(l.AttachedTo), Param: l.Strength,
			})
		}
		for _, cl := range c.Clutter() {
			static = append(static, staticRecord{
				ID: cl.ID, Kind: uint8(StaticClutter),
				X: int32(cl.Position.X), Y: int32(cl.Position.Y), Z: int32(cl.Position.Z),
				Param: cl.Kind,
			})
		}
	}
	items := w.BlockItems()
	dynamic := make([]blockItemRecord, 0, len(items))
	for _, it := range items {
		c := it.Coords()
		rec := blockItemRecord{
			ID:       it.ID,
			Type:     uint16(it.BlockType),
			Coords:   [5]float32{c.Xf, c.Yf, c.Zf, c.Direction, c.Pitch},
			Velocity: it.Velocity(),
		}
		if it.Falling() {
			rec.Falling = 1
		}
		dynamic = append(dynamic, rec)
	}

	mobs := w.MobList()
	creatures := make([]mobRecord, 0, len(mobs))
	for _, m := range mobs {
		c := m.Coords
		creatures = append(creatures, mobRecord{ID: m.ID, Kind: m.Kind, Coords: [5]float32{c.Xf, c.Yf, c.Zf, c.Direction, c.Pitch}})
	}

	for _, part := range []any{
		int32(len(static)), static,
		int32(len(dynamic)), dynamic,
		int32(len(creatures)), creatures,
	} {
		if err := binary.Write(dst, binary.LittleEndian, part); err != nil {
			return fmt.Errorf("ошибка записи предметов: %w", err)
		}
	}
	return nil
}

// ReadItems читает секцию WriteItems в ещё не готовый мир. Пустой поток
// означает мир без предметов. Свет от источников появится при FinalizeLoad.
func (w *World) ReadItems(src io.Reader) error {
	var n int32
	if err := binary.Read(src, binary.LittleEndian, &n); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("ошибка чтения числа предметов: %w", err)
	}
	if n < 0 || n > maxItemRecords {
		return fmt.Errorf("недопустимое число предметов: %d", n)
	}
	static := make([]staticRecord, n)
	if err := binary.Read(src, binary.LittleEndian, static); err != nil {
		return fmt.Errorf("ошибка чтения предметов: %w", err)
	}
	for _, r := range static {
		w.restoreStatic(r)
	}

	if err := binary.Read(src, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("ошибка чтения числа блоков-предметов: %w", err)
	}
	if n < 0 || n > maxItemRecords {
		return fmt.Errorf("недопустимое число блоков-предметов: %d", n)
	}
	dynamic := make([]blockItemRecord, n)
	if err := binary.Read(src, binary.LittleEndian, dynamic); err != nil {
		return fmt.Errorf("ошибка чтения блоков-предметов: %w", err)
	}
	for _, r := range dynamic {
		t := block.Type(r.Type)
		if r.Type > 0xFF || !t.IsValid() {
			w.logger.Warn("пропущен предмет %d неизвестного типа %d", r.ID, r.Type)
			continue
		}
		c := vec.Coords{Xf: r.Coords[0], Yf: r.Coords[1], Zf: r.Coords[2], Direction: r.Coords[3], Pitch: r.Coords[4]}
		if !w.grid.Contains(c.ToPosition()) {
			continue
		}
		item := NewBlockItem(r.ID, t, c, r.Velocity)
		item.SetFalling(r.Falling != 0)
		w.AddBlockItem(item)
	}

	// сохранения без существ заканчиваются здесь
	if err := binary.Read(src, binary.LittleEndian, &n); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("ошибка чтения числа существ: %w", err)
	}
	if n < 0 || n > maxItemRecords {
		return fmt.Errorf("недопустимое число существ: %d", n)
	}
	creatures := make([]mobRecord, n)
	if err := binary.Read(src, binary.LittleEndian, creatures); err != nil {
		return fmt.Errorf("ошибка чтения существ: %w", err)
	}
	for _, r := range creatures {
		c := vec.Coords{Xf: r.Coords[0], Yf: r.Coords[1], Zf: r.Coords[2], Direction: r.Coords[3], Pitch: r.Coords[4]}
		if r.ID > 0 && w.grid.Contains(c.ToPosition()) {
			w.AddMob(&Mob{ID: r.ID, Kind: r.Kind, Coords: c})
		}
	}
	return nil
}

// restoreStatic кладёт сохранённый предмет в чанк без проверок опоры и
// без пересчёта света
func (w *World) restoreStatic(r staticRecord) {
	pos := vec.Position{X: int(r.X), Y: int(r.Y), Z: int(r.Z)}
	c := w.grid.ChunkAt(pos)
	if c == nil || r.ID <= 0 {
		return
	}
	w.observeID(r.ID)
	c.Mu.Lock()
	defer c.Mu.Unlock()
	switch StaticKind(r.Kind) {
	case StaticLightSource:
		c.lightSources[pos] = &LightSource{ID: r.ID, Position: pos, AttachedTo: vec.Face(r.Face), Strength: min(r.Param, 15)}
	case StaticClutter:
		c.clutter[pos] = &Clutter{ID: r.ID, Position: pos, Kind: r.Param}
	}
}
