package world

import (
	"sort"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// NextID выдаёт новый идентификатор объекта. Идентификаторы не
// переиспользуются, пока процесс жив.
func (w *World) NextID() int32 {
	return w.nextID.Add(1)
}

// observeID сдвигает счётчик за идентификатор, пришедший извне
func (w *World) observeID(id int32) {
	for {
		cur := w.nextID.Load()
		if id <= cur || w.nextID.CompareAndSwap(cur, id) {
			return
		}
	}
}

// --- предметы-блоки ---

// AddBlockItem регистрирует предмет. Нулевой ID заменяется новым.
func (w *World) AddBlockItem(item *BlockItem) int32 {
	if item.ID == 0 {
		item.ID = w.NextID()
	} else {
		w.observeID(item.ID)
	}
	w.items.Store(item.ID, item)
	if c := w.grid.ChunkAt(item.Coords().ToPosition()); c != nil {
		c.Mu.Lock()
		c.dynamic[item.ID] = struct{}{}
		c.Mu.Unlock()
	}
	return item.ID
}

// RemoveBlockItem удаляет предмет. Повторное удаление безвредно и возвращает false.
func (w *World) RemoveBlockItem(id int32) bool {
	v, ok := w.items.LoadAndDelete(id)
	if !ok {
		return false
	}
	item := v.(*BlockItem)
	if c := w.grid.ChunkAt(item.Coords().ToPosition()); c != nil {
		c.Mu.Lock()
		delete(c.dynamic, id)
		c.Mu.Unlock()
	}
	return true
}

// BlockItem ищет предмет по ID
func (w *World) BlockItem(id int32) (*BlockItem, bool) {
	v, ok := w.items.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*BlockItem), true
}

// MoveBlockItem перемещает предмет, перенося его между чанками
func (w *World) MoveBlockItem(id int32, coords vec.Coords) bool {
	item, ok := w.BlockItem(id)
	if !ok {
		return false
	}
	from := w.grid.ChunkAt(item.Coords().ToPosition())
	item.mu.Lock()
	item.coords = coords
	item.mu.Unlock()
	to := w.grid.ChunkAt(coords.ToPosition())
	if from == to {
		return true
	}
	if from != nil {
		from.Mu.Lock()
		delete(from.dynamic, id)
		from.Mu.Unlock()
	}
	if to != nil {
		to.Mu.Lock()
		to.dynamic[id] = struct{}{}
		to.Mu.Unlock()
	}
	return true
}

// LandBlockItem кладёт предмет в точку c и останавливает его
func (w *World) LandBlockItem(id int32, c vec.Coords) bool {
	item, ok := w.BlockItem(id)
	if !ok || !w.MoveBlockItem(id, c) {
		return false
	}
	item.land()
	return true
}

// BlockItems снимок всех предметов по возрастанию ID
func (w *World) BlockItems() []*BlockItem {
	var out []*BlockItem
	w.items.Range(func(_, v any) bool {
		out = append(out, v.(*BlockItem))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- существа ---

// AddMob регистрирует существо. Нулевой ID заменяется новым.
func (w *World) AddMob(m *Mob) int32 {
	if m.ID == 0 {
		m.ID = w.NextID()
	} else {
		w.observeID(m.ID)
	}
	w.mobs.Store(m.ID, m)
	return m.ID
}

// Mobs количество существ
func (w *World) Mobs() int {
	n := 0
	w.mobs.Range(func(_, _ any) bool { n++; return true })
	return n
}

// MobList снимок существ по возрастанию ID
func (w *World) MobList() []*Mob {
	var out []*Mob
	w.mobs.Range(func(_, v any) bool {
		out = append(out, v.(*Mob))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- игроки ---

// AddPlayer регистрирует игрока. Нулевой ID заменяется новым.
func (w *World) AddPlayer(p *Player) int32 {
	if p.ID == 0 {
		p.ID = w.NextID()
	} else {
		w.observeID(p.ID)
	}
	w.players.Store(p.ID, p)
	return p.ID
}

// RemovePlayer удаляет игрока; повторное удаление возвращает false
func (w *World) RemovePlayer(id int32) bool {
	_, ok := w.players.LoadAndDelete(id)
	return ok
}

// Player ищет игрока по ID
func (w *World) Player(id int32) (*Player, bool) {
	v, ok := w.players.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Player), true
}

// Players снимок игроков по возрастанию ID
func (w *World) Players() []*Player {
	var out []*Player
	w.players.Range(func(_, v any) bool {
		out = append(out, v.(*Player))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- статические предметы ---

// AddLightSource прикрепляет источник света. Позиция должна быть
// прозрачной, а опорный блок непрозрачным.
func (w *World) AddLightSource(l *LightSource) bool {
	c := w.grid.ChunkAt(l.Position)
	if c == nil || !l.AttachedTo.Valid() || !w.Transparent(l.Position) || w.Transparent(l.Support()) {
		return false
	}
	if l.ID == 0 {
		l.ID = w.NextID()
	} else {
		w.observeID(l.ID)
	}
	if l.Strength > 15 {
		l.Strength = 15
	}
	c.Mu.Lock()
	c.lightSources[l.Position] = l
	c.Mu.Unlock()
	w.relightStatic(l.Position)
	return true
}

// AddClutter ставит мелкий предмет на твёрдый блок снизу
func (w *World) AddClutter(cl *Clutter) bool {
	c := w.grid.ChunkAt(cl.Position)
	if c == nil || cl.Position.Y == 0 || w.BlockType(cl.Position) != block.Air || !w.BlockAt(cl.Position.Below()).IsSolid() {
		return false
	}
	if cl.ID == 0 {
		cl.ID = w.NextID()
	} else {
		w.observeID(cl.ID)
	}
	c.Mu.Lock()
	c.clutter[cl.Position] = cl
	c.Mu.Unlock()
	if w.role.Renders() && !w.chunkUpdatesDisabled.Load() {
		w.queuer.QueueChanged(c)
	}
	return true
}

// StaticItemAt возвращает источник света или мелкий предмет в позиции
func (w *World) StaticItemAt(p vec.Position) (*LightSource, *Clutter) {
	c := w.grid.ChunkAt(p)
	if c == nil {
		return nil, nil
	}
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.lightSources[p], c.clutter[p]
}

// SpawnPoint точка появления новых игроков: центр мира над поверхностью
func (w *World) SpawnPoint() vec.Coords {
	x := w.grid.SizeX() * vec.ChunkSize / 2
	z := w.grid.SizeZ() * vec.ChunkSize / 2
	y := min(w.Height(x, z)+1, vec.ChunkHeight-2)
	return vec.NewCoords(float32(x)+0.5, float32(y), float32(z)+0.5)
}
