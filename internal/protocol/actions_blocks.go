package protocol

import (
	"fmt"

	"github.com/annel0/blockverse/internal/lighting"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// MaxMultiEdits предел правок в одном AddBlockMulti
const MaxMultiEdits = 4096

// editWireSize Position + u16 тип
const editWireSize = vec.PositionWireSize + 2

// validated проверять ли правку: сервер проверяет всё, что пришло от
// пиров; собственные правки сервера (автоматы) не проверяются
func validated(ctx *Context) bool {
	return ctx.Role == world.RoleServer && ctx.Peer != nil
}

// settle учитывает правку в инвентаре исполнителя: на сервере для
// правок пиров, у клиента и в одиночной игре только для своих
func settle(ctx *Context, old, t block.Type) {
	if validated(ctx) || (ctx.Role != world.RoleServer && ctx.Local) {
		ctx.World.SettleInventory(ctx.actor(), old, t)
	}
}

// reject отказ в правке пира: сообщение и исправления, возвращающие
// копию пира к истинному состоянию. Соединение не рвётся.
func reject(ctx *Context, err error, fixes ...Action) error {
	ctx.logger().Debug("правка %s отклонена: %v", ctx.Peer.SessionID(), err)
	if e := reply(ctx, &ServerMsg{Text: err.Error()}, false); e != nil {
		return e
	}
	for _, fix := range fixes {
		if e := reply(ctx, fix, false); e != nil {
			return e
		}
	}
	return nil
}

// restoreCuboid исправление отклонённой заливки: истинные типы блоков
// области и слоя под ней (там трава могла стать землёй). Идёт сверху
// вниз, чтобы восстановленный блок не разжаловал траву под собой.
func restoreCuboid(w *world.World, a, b vec.Position) []Action {
	box := lighting.NewBox(a, b)
	box.Min.Y--
	box = box.Intersect(w.Grid().Bounds())
	if box.Empty() {
		return nil
	}
	var out []Action
	cur := &AddBlockMulti{}
	for y := box.Max.Y; y >= box.Min.Y; y-- {
		for x := box.Min.X; x <= box.Max.X; x++ {
			for z := box.Min.Z; z <= box.Max.Z; z++ {
				p := vec.Position{X: x, Y: y, Z: z}
				cur.Edits = append(cur.Edits, world.Edit{Pos: p, Type: w.BlockType(p)})
				if len(cur.Edits) == MaxMultiEdits {
					out = append(out, cur)
					cur = &AddBlockMulti{}
				}
			}
		}
	}
	if len(cur.Edits) > 0 {
		out = append(out, cur)
	}
	return out
}

// placeOne общая часть AddBlock и RemoveBlock
func placeOne(ctx *Context, pos vec.Position, t block.Type) error {
	w := ctx.World
	old := w.BlockType(pos)
	if validated(ctx) {
		if err := w.ValidateEdit(ctx.actor(), pos, t); err != nil {
			return reject(ctx, err, &AddBlock{Pos: pos, BlockType: old})
		}
	}
	w.PlaceBlock(pos, t, false)
	settle(ctx, old, t)
	ctx.Replicator.Broadcast(ctx.Peer, func() Action {
		if t == block.Air {
			return &RemoveBlock{Pos: pos}
		}
		return &AddBlock{Pos: pos, BlockType: t}
	})
	return nil
}

// AddBlock установка блока
type AddBlock struct {
	base
	Pos       vec.Position
	BlockType block.Type
}

func (a *AddBlock) Type() Type { return TypeAddBlock }

func (a *AddBlock) Encode(w *Writer) {
	w.Position(a.Pos)
	w.U16(uint16(a.BlockType))
}

func (a *AddBlock) Decode(r *Reader) {
	a.Pos = r.Position()
	a.BlockType = r.BlockType()
}

func (a *AddBlock) Validate(w *world.World, playerID int32) error {
	return w.ValidateEdit(playerID, a.Pos, a.BlockType)
}

func (a *AddBlock) Apply(ctx *Context) error {
	return placeOne(ctx, a.Pos, a.BlockType)
}

// RemoveBlock снятие блока
type RemoveBlock struct {
	base
	Pos vec.Position
}

func (a *RemoveBlock) Type() Type       { return TypeRemoveBlock }
func (a *RemoveBlock) Encode(w *Writer) { w.Position(a.Pos) }
func (a *RemoveBlock) Decode(r *Reader) { a.Pos = r.Position() }

func (a *RemoveBlock) Validate(w *world.World, playerID int32) error {
	return w.ValidateEdit(playerID, a.Pos, block.Air)
}

func (a *RemoveBlock) Apply(ctx *Context) error {
	return placeOne(ctx, a.Pos, block.Air)
}

// AddBlockMulti набор правок с одним общим пересчётом
type AddBlockMulti struct {
	base
	Edits []world.Edit
}

func (a *AddBlockMulti) Type() Type { return TypeAddBlockMulti }

func (a *AddBlockMulti) Encode(w *Writer) {
	w.I32(int32(len(a.Edits)))
	for _, e := range a.Edits {
		w.Position(e.Pos)
		w.U16(uint16(e.Type))
	}
}

func (a *AddBlockMulti) Decode(r *Reader) {
	n := r.I32()
	if r.Err() != nil {
		return
	}
	if n < 0 || n > MaxMultiEdits || int(n)*editWireSize > r.Remaining() {
		r.Fail(fmt.Errorf("%w: %d правок", ErrPayloadLength, n))
		return
	}
	a.Edits = make([]world.Edit, n)
	for i := range a.Edits {
		a.Edits[i] = world.Edit{Pos: r.Position(), Type: r.BlockType()}
	}
}

func (a *AddBlockMulti) Validate(w *world.World, playerID int32) error {
	if len(a.Edits) > MaxMultiEdits {
		return fmt.Errorf("%w: слишком много правок", world.ErrInvalidEdit)
	}
	for _, e := range a.Edits {
		if err := w.ValidateEdit(playerID, e.Pos, e.Type); err != nil {
			return err
		}
	}
	return nil
}

func (a *AddBlockMulti) Apply(ctx *Context) error {
	w := ctx.World
	prev := make([]block.Type, len(a.Edits))
	for i, e := range a.Edits {
		prev[i] = w.BlockType(e.Pos)
	}
	if validated(ctx) {
		if err := a.Validate(w, ctx.actor()); err != nil {
			fix := &AddBlockMulti{}
			for i, e := range a.Edits {
				if w.IsValidBlockLocation(e.Pos) {
					fix.Edits = append(fix.Edits, world.Edit{Pos: e.Pos, Type: prev[i]})
				}
			}
			return reject(ctx, err, fix)
		}
	}
	w.PlaceBlocks(a.Edits)
	for i, e := range a.Edits {
		settle(ctx, prev[i], e.Type)
	}
	edits := a.Edits
	ctx.Replicator.Broadcast(ctx.Peer, func() Action { return &AddBlockMulti{Edits: edits} })
	return nil
}

// AddCuboid заливка параллелепипеда одним типом
type AddCuboid struct {
	base
	Min, Max  vec.Position
	BlockType block.Type
}

func (a *AddCuboid) Type() Type { return TypeAddCuboid }

func (a *AddCuboid) Encode(w *Writer) {
	w.Position(a.Min)
	w.Position(a.Max)
	w.U16(uint16(a.BlockType))
}

func (a *AddCuboid) Decode(r *Reader) {
	a.Min = r.Position()
	a.Max = r.Position()
	a.BlockType = r.BlockType()
}

func (a *AddCuboid) Validate(w *world.World, playerID int32) error {
	return w.ValidateCuboid(playerID, a.Min, a.Max, a.BlockType)
}

func (a *AddCuboid) Apply(ctx *Context) error {
	if validated(ctx) {
		if err := a.Validate(ctx.World, ctx.actor()); err != nil {
			return reject(ctx, err, restoreCuboid(ctx.World, a.Min, a.Max)...)
		}
	}
	ctx.World.PlaceCuboid(a.Min, a.Max, a.BlockType)
	lo, hi, t := a.Min, a.Max, a.BlockType
	ctx.Replicator.Broadcast(ctx.Peer, func() Action { return &AddCuboid{Min: lo, Max: hi, BlockType: t} })
	return nil
}

// AddStaticItem источник света или мелкий предмет. Param для источника
// света сила, для мелкого предмета его вид. ID назначает сервер.
type AddStaticItem struct {
	base
	ID    int32
	Kind  world.StaticKind
	Pos   vec.Position
	Face  vec.Face
	Param uint8
}

func (a *AddStaticItem) Type() Type { return TypeAddStaticItem }

func (a *AddStaticItem) Encode(w *Writer) {
	w.I32(a.ID)
	w.U8(uint8(a.Kind))
	w.Position(a.Pos)
	w.U8(uint8(a.Face))
	w.U8(a.Param)
}

func (a *AddStaticItem) Decode(r *Reader) {
	a.ID = r.I32()
	a.Kind = world.StaticKind(r.U8())
	a.Pos = r.Position()
	a.Face = vec.Face(r.U8())
	a.Param = r.U8()
}

// place добавляет предмет в мир; возвращает назначенный ID
func (a *AddStaticItem) place(w *world.World, id int32) (int32, bool) {
	switch a.Kind {
	case world.StaticLightSource:
		l := &world.LightSource{ID: id, Position: a.Pos, AttachedTo: a.Face, Strength: a.Param}
		ok := w.AddLightSource(l)
		return l.ID, ok
	case world.StaticClutter:
		c := &world.Clutter{ID: id, Position: a.Pos, Kind: a.Param}
		ok := w.AddClutter(c)
		return c.ID, ok
	}
	return 0, false
}

func (a *AddStaticItem) Apply(ctx *Context) error {
	if ctx.Role != world.RoleServer {
		a.place(ctx.World, a.ID)
		return nil
	}
	id, ok := a.place(ctx.World, 0)
	if !ok {
		if ctx.Peer != nil {
			return reject(ctx, fmt.Errorf("%w: предмет не на чем закрепить", world.ErrInvalidEdit))
		}
		return nil
	}
	kind, pos, face, param := a.Kind, a.Pos, a.Face, a.Param
	// ID назначен сервером, поэтому копию получает и отправитель
	ctx.Replicator.Broadcast(nil, func() Action {
		return &AddStaticItem{ID: id, Kind: kind, Pos: pos, Face: face, Param: param}
	})
	return nil
}

// AddBlockItem выпавший блок. ID назначает сервер.
type AddBlockItem struct {
	base
	ID        int32
	BlockType block.Type
	Coords    vec.Coords
	Velocity  [3]float32
}

func (a *AddBlockItem) Type() Type { return TypeAddBlockItem }

func (a *AddBlockItem) Encode(w *Writer) {
	w.I32(a.ID)
	w.U16(uint16(a.BlockType))
	w.Coords(a.Coords)
	for _, v := range a.Velocity {
		w.F32(v)
	}
}

func (a *AddBlockItem) Decode(r *Reader) {
	a.ID = r.I32()
	a.BlockType = r.BlockType()
	a.Coords = r.Coords()
	for i := range a.Velocity {
		a.Velocity[i] = r.F32()
	}
}

func (a *AddBlockItem) Apply(ctx *Context) error {
	w := ctx.World
	if ctx.Role != world.RoleServer {
		// известный ID означает, что предмет упал на новое место
		if w.LandBlockItem(a.ID, a.Coords) {
			return nil
		}
		w.AddBlockItem(world.NewBlockItem(a.ID, a.BlockType, a.Coords, a.Velocity))
		return nil
	}
	if !w.IsValidBlockLocation(a.Coords.ToPosition()) || !a.BlockType.IsValid() {
		if ctx.Peer != nil {
			return reject(ctx, world.ErrOutOfBounds)
		}
		return nil
	}
	id := w.AddBlockItem(world.NewBlockItem(0, a.BlockType, a.Coords, a.Velocity))
	t, coords, vel := a.BlockType, a.Coords, a.Velocity
	ctx.Replicator.Broadcast(nil, func() Action {
		return &AddBlockItem{ID: id, BlockType: t, Coords: coords, Velocity: vel}
	})
	return nil
}

// RemoveBlockItem удаление выпавшего блока (подбор). Повторное удаление безвредно.
type RemoveBlockItem struct {
	base
	ID int32
}

func (a *RemoveBlockItem) Type() Type       { return TypeRemoveBlockItem }
func (a *RemoveBlockItem) Encode(w *Writer) { w.I32(a.ID) }
func (a *RemoveBlockItem) Decode(r *Reader) { a.ID = r.I32() }

func (a *RemoveBlockItem) Apply(ctx *Context) error {
	if !ctx.World.RemoveBlockItem(a.ID) {
		return nil
	}
	id := a.ID
	ctx.Replicator.Broadcast(ctx.Peer, func() Action { return &RemoveBlockItem{ID: id} })
	return nil
}
