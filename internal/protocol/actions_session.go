package protocol

import (
	"bytes"
	"fmt"
	"time"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// Размеры полей фиксированной длины
const (
	NameSize    = 16
	VersionSize = 20
	// MaxChatLength длиннее сообщения обрезаются сервером
	MaxChatLength = 512
)

// Connect рукопожатие. От клиента: имя и версия. От сервера: назначенный
// ID и точка появления, либо объявление о новом игроке.
type Connect struct {
	base
	PlayerID int32
	Name     string
	Version  string
	Coords   vec.Coords
}

func (a *Connect) Type() Type { return TypeConnect }

func (a *Connect) Encode(w *Writer) {
	w.I32(a.PlayerID)
	w.Fixed(a.Name, NameSize)
	w.Fixed(a.Version, VersionSize)
	w.Coords(a.Coords)
}

func (a *Connect) Decode(r *Reader) {
	a.PlayerID = r.I32()
	a.Name = r.Fixed(NameSize)
	a.Version = r.Fixed(VersionSize)
	a.Coords = r.Coords()
}

func (a *Connect) Apply(ctx *Context) error {
	w := ctx.World
	if ctx.Role != world.RoleServer {
		if a.PlayerID == ctx.PlayerID {
			return nil
		}
		w.AddPlayer(world.NewPlayer(a.PlayerID, a.Name, a.Coords, false))
		w.Feedback().Notify(fmt.Sprintf("%s присоединился", a.Name))
		return nil
	}

	if ctx.Peer == nil || ctx.Peer.Admitted() {
		return violation("повторный Connect")
	}
	if a.Version != world.ProtocolVersion {
		_ = reply(ctx, &ServerMsg{Text: fmt.Sprintf("версия сервера %s, клиента %s", world.ProtocolVersion, a.Version)}, true)
		return fmt.Errorf("%w: клиент %q, сервер %q", ErrVersionMismatch, a.Version, world.ProtocolVersion)
	}
	spawn := ctx.spawn(a.Name)
	id := w.AddPlayer(world.NewPlayer(0, a.Name, spawn, w.Settings().Creative))
	// допуск после ответа: рассылки не должны обогнать приветствие
	if err := reply(ctx, &Connect{PlayerID: id, Name: a.Name, Version: world.ProtocolVersion, Coords: spawn}, true); err != nil {
		return err
	}
	ctx.Peer.Admit(id)
	name := a.Name
	ctx.Replicator.Broadcast(ctx.Peer, func() Action {
		return &Connect{PlayerID: id, Name: name, Version: world.ProtocolVersion, Coords: spawn}
	})
	ctx.logger().Info("игрок %s (%d) подключён, сессия %s", a.Name, id, ctx.Peer.SessionID())
	return nil
}

// Disconnect уход игрока
type Disconnect struct {
	base
	PlayerID int32
}

func (a *Disconnect) Type() Type       { return TypeDisconnect }
func (a *Disconnect) Encode(w *Writer) { w.I32(a.PlayerID) }
func (a *Disconnect) Decode(r *Reader) { a.PlayerID = r.I32() }

func (a *Disconnect) Apply(ctx *Context) error {
	switch ctx.Role {
	case world.RoleServer:
		// соединение закроет цикл чтения, он же оповестит остальных
		return ErrPeerLeft
	case world.RoleClient:
		if a.PlayerID == ctx.PlayerID {
			return Disconnected("сервер отключил игрока", nil)
		}
	}
	if p, ok := ctx.World.Player(a.PlayerID); ok {
		ctx.World.RemovePlayer(a.PlayerID)
		ctx.World.Feedback().Notify(fmt.Sprintf("%s отключился", p.Name))
	}
	return nil
}

// GetWorld запрос мира (пустая нагрузка) и ответ со сжатым миром
type GetWorld struct {
	base
	Payload []byte
}

func (a *GetWorld) Type() Type       { return TypeGetWorld }
func (a *GetWorld) Encode(w *Writer) { w.Raw(a.Payload) }
func (a *GetWorld) Decode(r *Reader) { a.Payload = r.Rest() }

func (a *GetWorld) Apply(ctx *Context) error {
	if ctx.Role != world.RoleServer {
		// мир принимает сессия клиента до запуска цикла чтения
		return violation("GetWorld вне загрузки мира")
	}
	if ctx.Peer == nil || !ctx.Peer.Admitted() {
		return violation("GetWorld до Connect")
	}
	ctx.Peer.StartStreaming()
	var buf bytes.Buffer
	if err := ctx.World.WritePayload(&buf); err != nil {
		return fmt.Errorf("сборка мира для %s: %w", ctx.Peer.SessionID(), err)
	}
	if err := reply(ctx, &GetWorld{Payload: buf.Bytes()}, true); err != nil {
		return err
	}
	// остальные игроки после мира, чтобы клиенту было куда их добавить
	self := ctx.Peer.PlayerID()
	for _, p := range ctx.World.Players() {
		if p.ID == self {
			continue
		}
		if err := reply(ctx, &Connect{PlayerID: p.ID, Name: p.Name, Version: world.ProtocolVersion, Coords: p.Coords()}, false); err != nil {
			return err
		}
	}
	ctx.logger().Debug("мир отправлен %s: %d байт", ctx.Peer.SessionID(), buf.Len())
	return nil
}

// PlayerMove перемещение игрока
type PlayerMove struct {
	base
	Coords   vec.Coords
	PlayerID int32
}

func (a *PlayerMove) Type() Type { return TypePlayerMove }

func (a *PlayerMove) Encode(w *Writer) {
	w.Coords(a.Coords)
	w.I32(a.PlayerID)
}

func (a *PlayerMove) Decode(r *Reader) {
	a.Coords = r.Coords()
	a.PlayerID = r.I32()
}

func (a *PlayerMove) Apply(ctx *Context) error {
	if ctx.Role == world.RoleServer && a.PlayerID != ctx.actor() {
		return violation("перемещение чужого игрока %d", a.PlayerID)
	}
	p, ok := ctx.World.Player(a.PlayerID)
	if !ok {
		return nil
	}
	p.Move(a.Coords)
	coords, id := a.Coords, a.PlayerID
	ctx.Replicator.Broadcast(ctx.Peer, func() Action { return &PlayerMove{Coords: coords, PlayerID: id} })
	return nil
}

// ChatMsg сообщение чата
type ChatMsg struct {
	base
	From int32
	Text string
}

func (a *ChatMsg) Type() Type { return TypeChatMsg }

func (a *ChatMsg) Encode(w *Writer) {
	w.I32(a.From)
	w.String(a.Text)
}

func (a *ChatMsg) Decode(r *Reader) {
	a.From = r.I32()
	a.Text = r.String()
}

func (a *ChatMsg) Apply(ctx *Context) error {
	w := ctx.World
	if ctx.Role == world.RoleServer {
		a.From = ctx.actor()
		if len(a.Text) > MaxChatLength {
			a.Text = a.Text[:MaxChatLength]
		}
	}
	name := "?"
	if p, ok := w.Player(a.From); ok {
		name = p.Name
	}
	if ctx.Role == world.RoleServer {
		ctx.logger().Info("чат %s: %s", name, a.Text)
		from, text := a.From, a.Text
		ctx.Replicator.Broadcast(ctx.Peer, func() Action { return &ChatMsg{From: from, Text: text} })
		return nil
	}
	w.Feedback().Notify(fmt.Sprintf("%s: %s", name, a.Text))
	return nil
}

// ServerMsg системное сообщение сервера
type ServerMsg struct {
	base
	Text string
}

func (a *ServerMsg) Type() Type       { return TypeServerMsg }
func (a *ServerMsg) Encode(w *Writer) { w.String(a.Text) }
func (a *ServerMsg) Decode(r *Reader) { a.Text = r.String() }

func (a *ServerMsg) Apply(ctx *Context) error {
	ctx.World.Feedback().Notify(a.Text)
	return nil
}

// ServerSync медленно меняющееся состояние: время, солнце, дайджест блоков
type ServerSync struct {
	base
	GameTime   int32
	SunDegrees float32
	Digest     uint64
}

func (a *ServerSync) Type() Type { return TypeServerSync }

func (a *ServerSync) Encode(w *Writer) {
	w.I32(a.GameTime)
	w.F32(a.SunDegrees)
	w.U64(a.Digest)
}

func (a *ServerSync) Decode(r *Reader) {
	a.GameTime = r.I32()
	a.SunDegrees = r.F32()
	a.Digest = r.U64()
}

func (a *ServerSync) Apply(ctx *Context) error {
	w := ctx.World
	if w.SetTime(a.GameTime, a.SunDegrees) && ctx.OnSkyChange != nil {
		ctx.OnSkyChange()
	}
	if a.Digest != 0 {
		if local := w.Digest(); local != a.Digest {
			ctx.logger().Warn("мир разошёлся с сервером: %016x против %016x", local, a.Digest)
		}
	}
	return nil
}

// Опции игрока
const (
	OptionCreative uint8 = 1
)

// PlayerOption переключение опции игрока
type PlayerOption struct {
	base
	PlayerID int32
	Option   uint8
	Value    int32
}

func (a *PlayerOption) Type() Type { return TypePlayerOption }

func (a *PlayerOption) Encode(w *Writer) {
	w.I32(a.PlayerID)
	w.U8(a.Option)
	w.I32(a.Value)
}

func (a *PlayerOption) Decode(r *Reader) {
	a.PlayerID = r.I32()
	a.Option = r.U8()
	a.Value = r.I32()
}

func (a *PlayerOption) Apply(ctx *Context) error {
	w := ctx.World
	if ctx.Role == world.RoleServer {
		if a.PlayerID != ctx.actor() {
			return violation("опция чужого игрока %d", a.PlayerID)
		}
		if a.Option == OptionCreative && a.Value != 0 && !w.Settings().Creative {
			// клиент уже включил режим у себя, возвращаем его обратно
			if err := reply(ctx, &ServerMsg{Text: "творческий режим на этом сервере выключен"}, false); err != nil {
				return err
			}
			return reply(ctx, &PlayerOption{PlayerID: a.PlayerID, Option: OptionCreative, Value: 0}, false)
		}
	}
	p, ok := w.Player(a.PlayerID)
	if !ok {
		return nil
	}
	switch a.Option {
	case OptionCreative:
		p.SetCreative(a.Value != 0)
	default:
		ctx.logger().Warn("неизвестная опция игрока %d", a.Option)
		return nil
	}
	id, opt, val := a.PlayerID, a.Option, a.Value
	ctx.Replicator.Broadcast(ctx.Peer, func() Action { return &PlayerOption{PlayerID: id, Option: opt, Value: val} })
	return nil
}

// Ping проверка задержки; сервер возвращает отметку времени как есть
type Ping struct {
	base
	Nanos int64
}

func (a *Ping) Type() Type       { return TypePing }
func (a *Ping) Encode(w *Writer) { w.I64(a.Nanos) }
func (a *Ping) Decode(r *Reader) { a.Nanos = r.I64() }

func (a *Ping) Apply(ctx *Context) error {
	if ctx.Role == world.RoleServer {
		return reply(ctx, &Ping{Nanos: a.Nanos}, true)
	}
	rtt := time.Duration(time.Now().UnixNano() - a.Nanos)
	ctx.logger().Debug("задержка до сервера %v", rtt)
	return nil
}
