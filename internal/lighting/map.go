package lighting

import (
	"bytes"

	"github.com/annel0/blockverse/internal/vec"
)

// Map байтовый массив уровней света (0-15), покрывающий область мира
type Map struct {
	box    Box
	sy, sz int
	data   []byte
}

// NewMap выделяет карту под область
func NewMap(b Box) *Map {
	return &Map{
		box:  b,
		sy:   b.Max.Y - b.Min.Y + 1,
		sz:   b.Max.Z - b.Min.Z + 1,
		data: make([]byte, b.Volume()),
	}
}

// Box область, покрываемая картой
func (m *Map) Box() Box { return m.box }

func (m *Map) index(p vec.Position) int {
	return ((p.X-m.box.Min.X)*m.sy+(p.Y-m.box.Min.Y))*m.sz + (p.Z - m.box.Min.Z)
}

// Get возвращает уровень; вне карты 0
func (m *Map) Get(p vec.Position) byte {
	if !m.box.Contains(p) {
		return 0
	}
	return m.data[m.index(p)]
}

// Set записывает уровень; запись вне карты игнорируется
func (m *Map) Set(p vec.Position, v byte) {
	if !m.box.Contains(p) {
		return
	}
	if v > MaxLight {
		v = MaxLight
	}
	m.data[m.index(p)] = v
}

// CopyFrom переносит значения src в пересечение областей
func (m *Map) CopyFrom(src *Map) {
	src.box.Intersect(m.box).Each(func(p vec.Position) {
		m.data[m.index(p)] = src.data[src.index(p)]
	})
}

// Clone возвращает независимую копию
func (m *Map) Clone() *Map {
	c := *m
	c.data = append([]byte(nil), m.data...)
	return &c
}

// Equal совпадают ли области и значения
func (m *Map) Equal(o *Map) bool {
	return m.box == o.box && bytes.Equal(m.data, o.data)
}

// Clear обнуляет карту
func (m *Map) Clear() {
	clear(m.data)
}
