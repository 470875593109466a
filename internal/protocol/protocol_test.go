package protocol

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

type fakePeer struct {
	id       string
	player   int32
	admitted bool
	stream   bool
}

func (p *fakePeer) SessionID() string { return p.id }
func (p *fakePeer) PlayerID() int32   { return p.player }
func (p *fakePeer) Admit(id int32)    { p.player, p.admitted = id, true }
func (p *fakePeer) Admitted() bool    { return p.admitted }
func (p *fakePeer) StartStreaming()   { p.stream = true }

type fakeReplicator struct {
	sent      []Action
	immediate []bool
	broadcast []Action
	excepts   []Peer
}

func (f *fakeReplicator) Send(a Action, immediate bool) error {
	f.sent = append(f.sent, a)
	f.immediate = append(f.immediate, immediate)
	return nil
}

func (f *fakeReplicator) Broadcast(except Peer, build func() Action) {
	f.broadcast = append(f.broadcast, build())
	f.excepts = append(f.excepts, except)
}

type notes struct{ msgs []string }

func (n *notes) PlaySound(world.Sound, vec.Position) {}
func (n *notes) Notify(msg string)                   { n.msgs = append(n.msgs, msg) }

func testWorld(t *testing.T, role world.Role) (*world.World, *notes) {
	t.Helper()
	s := world.DefaultSettings()
	s.SizeChunksX, s.SizeChunksZ = 1, 1
	n := &notes{}
	w, err := world.New(s, role, world.WithFeedback(n))
	require.NoError(t, err)
	t.Cleanup(w.Close)
	for _, c := range w.Grid().All() {
		for x := 0; x < vec.ChunkSize; x++ {
			for z := 0; z < vec.ChunkSize; z++ {
				for y := 0; y <= 5; y++ {
					c.SetRaw(x, y, z, block.New(block.Stone))
				}
			}
		}
	}
	require.NoError(t, w.FinalizeLoad(context.Background()))
	return w, n
}

func TestRegistryIsComplete(t *testing.T) {
	r, err := NewRegistry(definitions)
	require.NoError(t, err)
	assert.Len(t, r.byTag, 16)
	assert.Equal(t, "AddBlock", Name(TypeAddBlock))
	assert.Equal(t, "unknown(99)", Name(99))
}

func TestRegistryRejectsBrokenTables(t *testing.T) {
	dup := append([]definition{}, definitions...)
	dup = append(dup, definitions[0])
	_, err := NewRegistry(dup)
	assert.Error(t, err, "дубль тега")

	_, err = NewRegistry(definitions[1:])
	assert.Error(t, err, "дыра в нумерации")

	wrong := append([]definition{}, definitions...)
	wrong[1].new = func() Action { return &Connect{} }
	_, err = NewRegistry(wrong)
	assert.Error(t, err, "тег конструктора не совпадает")
}

func TestActionsSurviveTheWire(t *testing.T) {
	samples := []Action{
		&Connect{PlayerID: 7, Name: "alice", Version: world.ProtocolVersion, Coords: vec.Coords{Xf: 1.5, Yf: 2, Zf: -3.25, Direction: 90, Pitch: -10}},
		&Disconnect{PlayerID: 7},
		&GetWorld{Payload: []byte{1, 2, 3}},
		&PlayerMove{Coords: vec.Coords{Xf: 4, Yf: 5, Zf: 6}, PlayerID: 3},
		&ChatMsg{From: 3, Text: "привет"},
		&ServerSync{GameTime: 1200, SunDegrees: 45.5, Digest: 0xdeadbeefcafe},
		&AddBlock{Pos: vec.Position{X: 1, Y: 2, Z: 3}, BlockType: block.Dirt},
		&RemoveBlock{Pos: vec.Position{X: 4, Y: 5, Z: 6}},
		&AddBlockMulti{Edits: []world.Edit{{Pos: vec.Position{X: 1}, Type: block.Sand}, {Pos: vec.Position{Y: 2}, Type: block.Air}}},
		&AddCuboid{Min: vec.Position{X: 1, Y: 1, Z: 1}, Max: vec.Position{X: 3, Y: 4, Z: 5}, BlockType: block.Glass},
		&AddStaticItem{ID: 9, Kind: world.StaticLightSource, Pos: vec.Position{X: 2, Y: 7, Z: 2}, Face: vec.FaceBottom, Param: 12},
		&AddBlockItem{ID: 11, BlockType: block.Gravel, Coords: vec.Coords{Xf: 1, Yf: 9, Zf: 1}, Velocity: [3]float32{0, -1, 0.5}},
		&RemoveBlockItem{ID: 11},
		&PlayerOption{PlayerID: 3, Option: OptionCreative, Value: 1},
		&Ping{Nanos: 123456789},
	}
	for _, a := range samples {
		var buf bytes.Buffer
		tag, payload := Encode(a)
		require.NoError(t, WriteFrame(&buf, tag, payload))
		assert.Equal(t, int32(len(payload)), int32(binary.LittleEndian.Uint32(buf.Bytes()[2:6])), "%s: длина в заголовке", Name(tag))

		gotTag, gotPayload, err := ReadFrame(&buf, DefaultMaxFrameSize)
		require.NoError(t, err)
		decoded, err := Decode(gotTag, gotPayload, world.RoleClient)
		require.NoError(t, err, Name(tag))
		assert.Equal(t, a, decoded, Name(tag))
	}
}

func TestFixedStringsAreTruncated(t *testing.T) {
	_, payload := Encode(&Connect{Name: "очень-длинное-имя-игрока"})
	assert.Len(t, payload, 4+NameSize+VersionSize+vec.CoordsWireSize)
}

func TestReadFrameRejectsBadLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{8, 0})
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(0xffffffff)))
	_, _, err := ReadFrame(&buf, 1024)
	assert.ErrorIs(t, err, ErrFrameTooLarge, "отрицательная длина")

	buf.Reset()
	require.NoError(t, WriteFrame(&buf, TypeChatMsg, make([]byte, 2048)))
	_, _, err = ReadFrame(&buf, 1024)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(99, nil, world.RoleServer)
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = Decode(TypeServerMsg, nil, world.RoleServer)
	assert.ErrorIs(t, err, ErrProtocolViolation, "ServerMsg идёт только к клиенту")

	_, err = Decode(TypeRemoveBlockItem, []byte{1, 0, 0, 0, 0}, world.RoleServer)
	assert.ErrorIs(t, err, ErrPayloadLength, "лишний байт")

	_, err = Decode(TypeAddBlock, []byte{1, 0}, world.RoleServer)
	assert.ErrorIs(t, err, ErrPayloadLength, "обрезанная нагрузка")

	var w Writer
	w.I32(MaxMultiEdits + 1)
	_, err = Decode(TypeAddBlockMulti, w.Bytes(), world.RoleServer)
	assert.ErrorIs(t, err, ErrPayloadLength)

	var wide Writer
	wide.Position(vec.Position{X: 1, Y: 6, Z: 1})
	wide.U16(0x0100 | uint16(block.Stone))
	_, err = Decode(TypeAddBlock, wide.Bytes(), world.RoleServer)
	assert.ErrorIs(t, err, ErrProtocolViolation, "тип блока шире байта не обрезается")
}

func TestPeerBindingIsSingleAssignment(t *testing.T) {
	a := &AddBlock{}
	p1, p2 := &fakePeer{id: "a"}, &fakePeer{id: "b"}
	require.NoError(t, a.BindPeer(p1))
	require.NoError(t, a.BindPeer(p1), "та же привязка допустима")
	assert.ErrorIs(t, a.BindPeer(p2), ErrPeerAlreadyBound)
	assert.Equal(t, p1, a.Peer())
}

func serverContext(t *testing.T) (*Context, *fakeReplicator, *fakePeer) {
	w, _ := testWorld(t, world.RoleServer)
	r := &fakeReplicator{}
	peer := &fakePeer{id: "s1"}
	base := &Context{Role: world.RoleServer, World: w, Replicator: r}
	return base.From(peer), r, peer
}

func TestServerConnectAdmitsPeer(t *testing.T) {
	ctx, r, peer := serverContext(t)

	require.NoError(t, (&Connect{Name: "bob", Version: world.ProtocolVersion}).Apply(ctx))

	require.True(t, peer.Admitted())
	require.Len(t, r.sent, 1)
	welcome := r.sent[0].(*Connect)
	assert.Equal(t, peer.PlayerID(), welcome.PlayerID)
	assert.True(t, r.immediate[0], "ответ рукопожатия идёт в обход очереди")
	assert.Equal(t, Peer(peer), welcome.Peer())

	require.Len(t, r.broadcast, 1)
	assert.NotSame(t, welcome, r.broadcast[0], "каждому пиру новый экземпляр")
	assert.Equal(t, Peer(peer), r.excepts[0])

	_, ok := ctx.World.Player(peer.PlayerID())
	assert.True(t, ok)

	err := (&Connect{Name: "bob", Version: world.ProtocolVersion}).Apply(ctx)
	assert.ErrorIs(t, err, ErrProtocolViolation, "повторное рукопожатие")
}

func TestServerConnectRejectsVersion(t *testing.T) {
	ctx, r, peer := serverContext(t)

	err := (&Connect{Name: "old", Version: "blockverse-0.9"}).Apply(ctx)

	assert.ErrorIs(t, err, ErrVersionMismatch)
	assert.False(t, peer.Admitted())
	require.Len(t, r.sent, 1)
	assert.IsType(t, &ServerMsg{}, r.sent[0])
	assert.Empty(t, ctx.World.Players())
}

func TestServerRejectsEditWithoutResources(t *testing.T) {
	ctx, r, _ := serverContext(t)
	require.NoError(t, (&Connect{Name: "eve", Version: world.ProtocolVersion}).Apply(ctx))
	r.sent, r.broadcast = nil, nil
	pos := vec.Position{X: 3, Y: 6, Z: 3}

	require.NoError(t, (&AddBlock{Pos: pos, BlockType: block.Planks}).Apply(ctx), "отказ не рвёт соединение")

	assert.Equal(t, block.Air, ctx.World.BlockType(pos), "отклонённая правка не применяется")
	assert.Empty(t, r.broadcast, "и не рассылается")
	require.Len(t, r.sent, 2)
	assert.IsType(t, &ServerMsg{}, r.sent[0])
	fix := r.sent[1].(*AddBlock)
	assert.Equal(t, block.Air, fix.BlockType, "исправление возвращает пиру истинный блок")
}

func TestServerAppliesAndRebroadcastsEdit(t *testing.T) {
	ctx, r, peer := serverContext(t)
	require.NoError(t, (&Connect{Name: "eve", Version: world.ProtocolVersion}).Apply(ctx))
	p, _ := ctx.World.Player(peer.PlayerID())
	p.Give(block.Planks, 2)
	r.sent, r.broadcast, r.excepts = nil, nil, nil
	pos := vec.Position{X: 3, Y: 6, Z: 3}

	in := &AddBlock{Pos: pos, BlockType: block.Planks}
	require.NoError(t, in.BindPeer(peer))
	require.NoError(t, in.Apply(ctx))

	assert.Equal(t, block.Planks, ctx.World.BlockType(pos))
	assert.Equal(t, 1, p.Count(block.Planks))
	require.Len(t, r.broadcast, 1)
	out := r.broadcast[0].(*AddBlock)
	assert.NotSame(t, in, out)
	assert.Nil(t, out.Peer(), "новый экземпляр ещё не привязан")
	assert.Equal(t, Peer(peer), r.excepts[0])

	require.NoError(t, (&RemoveBlock{Pos: pos}).Apply(ctx))
	assert.Equal(t, 2, p.Count(block.Planks), "снятый блок возвращается")
	assert.IsType(t, &RemoveBlock{}, r.broadcast[1])
}

func TestServerAssignsItemIDs(t *testing.T) {
	ctx, r, peer := serverContext(t)
	require.NoError(t, (&Connect{Name: "eve", Version: world.ProtocolVersion}).Apply(ctx))
	r.broadcast, r.excepts = nil, nil

	require.NoError(t, (&AddBlockItem{ID: 999, BlockType: block.Sand, Coords: vec.Coords{Xf: 2, Yf: 7, Zf: 2}}).Apply(ctx))

	require.Len(t, r.broadcast, 1)
	out := r.broadcast[0].(*AddBlockItem)
	assert.NotEqual(t, int32(999), out.ID)
	assert.Greater(t, out.ID, peer.PlayerID())
	assert.Nil(t, r.excepts[0], "отправитель тоже узнаёт назначенный ID")

	require.NoError(t, (&RemoveBlockItem{ID: out.ID}).Apply(ctx))
	require.NoError(t, (&RemoveBlockItem{ID: out.ID}).Apply(ctx), "повторное удаление безвредно")
	assert.Len(t, r.broadcast, 2, "повтор не рассылается")
}

func TestServerDisconnectAndViolations(t *testing.T) {
	ctx, _, _ := serverContext(t)

	assert.ErrorIs(t, (&Disconnect{}).Apply(ctx), ErrPeerLeft)
	assert.ErrorIs(t, (&GetWorld{}).Apply(ctx), ErrProtocolViolation, "мир только после рукопожатия")

	require.NoError(t, (&Connect{Name: "eve", Version: world.ProtocolVersion}).Apply(ctx))
	err := (&PlayerMove{PlayerID: ctx.Peer.PlayerID() + 100}).Apply(ctx)
	assert.ErrorIs(t, err, ErrProtocolViolation, "нельзя двигать чужого игрока")
}

func TestServerSendsWorldThenRoster(t *testing.T) {
	ctx, r, peer := serverContext(t)
	ctx.World.AddPlayer(world.NewPlayer(0, "old", vec.Coords{}, false))
	require.NoError(t, (&Connect{Name: "new", Version: world.ProtocolVersion}).Apply(ctx))
	r.sent = nil

	require.NoError(t, (&GetWorld{}).Apply(ctx))

	assert.True(t, peer.stream, "таймаут рукопожатия снят")
	require.Len(t, r.sent, 2)
	gw := r.sent[0].(*GetWorld)
	w2, err := world.ReadPayload(bytes.NewReader(gw.Payload), world.RoleServer)
	require.NoError(t, err)
	defer w2.Close()
	assert.Equal(t, ctx.World.Digest(), w2.Digest())
	assert.Equal(t, "old", r.sent[1].(*Connect).Name)
}

func TestClientSubmit(t *testing.T) {
	w, n := testWorld(t, world.RoleClient)
	id := w.AddPlayer(world.NewPlayer(0, "me", vec.Coords{Xf: 20, Yf: 6, Zf: 20}, false))
	r := &fakeReplicator{}
	ctx := &Context{Role: world.RoleClient, World: w, Replicator: r, PlayerID: id}
	pos := vec.Position{X: 3, Y: 6, Z: 3}

	err := Submit(ctx, &AddBlock{Pos: pos, BlockType: block.Planks})
	assert.ErrorIs(t, err, world.ErrInsufficient)
	assert.Empty(t, r.sent, "отклонённая правка не отправляется")
	assert.Equal(t, block.Air, w.BlockType(pos))
	require.Len(t, n.msgs, 1)

	p, _ := w.Player(id)
	p.Give(block.Planks, 1)
	require.NoError(t, Submit(ctx, &AddBlock{Pos: pos, BlockType: block.Planks}))
	assert.Equal(t, block.Planks, w.BlockType(pos), "клиент применяет правку у себя")
	assert.Zero(t, p.Count(block.Planks))
	require.Len(t, r.sent, 1)

	require.NoError(t, Submit(ctx, &Ping{Nanos: 1}))
	assert.Len(t, r.sent, 2)
	w.WaitIdle()
}

func TestClientDisconnectOfSelf(t *testing.T) {
	w, n := testWorld(t, world.RoleClient)
	other := w.AddPlayer(world.NewPlayer(0, "bob", vec.Coords{}, false))
	ctx := &Context{Role: world.RoleClient, World: w, Replicator: &fakeReplicator{}, PlayerID: 42}

	require.NoError(t, (&Disconnect{PlayerID: other}).Apply(ctx))
	_, ok := w.Player(other)
	assert.False(t, ok)
	assert.Contains(t, n.msgs[0], "bob")

	err := (&Disconnect{PlayerID: 42}).Apply(ctx)
	var de *DisconnectError
	require.True(t, errors.As(err, &de))
	assert.False(t, de.Restart)
}

func TestServerSyncTriggersDayNight(t *testing.T) {
	w, _ := testWorld(t, world.RoleClient)
	called := 0
	ctx := &Context{Role: world.RoleClient, World: w, Replicator: &fakeReplicator{}, OnSkyChange: func() { called++ }}

	require.NoError(t, (&ServerSync{GameTime: 10, SunDegrees: 0, Digest: w.Digest()}).Apply(ctx))
	assert.Equal(t, 1, called)
	require.NoError(t, (&ServerSync{GameTime: 11, SunDegrees: 0}).Apply(ctx))
	assert.Equal(t, 1, called, "без заметной смены света пересборки нет")
	assert.Equal(t, int32(11), w.Settings().GameTime)
}

func TestServerSendsItemsWithWorld(t *testing.T) {
	ctx, r, _ := serverContext(t)
	w := ctx.World
	src := vec.Position{X: 3, Y: 6, Z: 3}
	require.True(t, w.AddLightSource(&world.LightSource{Position: src, AttachedTo: vec.FaceBottom, Strength: 14}))
	require.True(t, w.AddClutter(&world.Clutter{Position: vec.Position{X: 8, Y: 6, Z: 8}, Kind: 2}))
	itemID := w.AddBlockItem(world.NewBlockItem(0, block.Sand, vec.Coords{Xf: 5.5, Yf: 7, Zf: 5.5}, [3]float32{}))
	require.NoError(t, (&Connect{Name: "late", Version: world.ProtocolVersion}).Apply(ctx))
	r.sent = nil

	require.NoError(t, (&GetWorld{}).Apply(ctx))

	gw := r.sent[0].(*GetWorld)
	joiner, err := world.ReadPayload(bytes.NewReader(gw.Payload), world.RoleClient)
	require.NoError(t, err)
	t.Cleanup(joiner.Close)
	require.NoError(t, joiner.FinalizeLoad(context.Background()))

	light, _ := joiner.StaticItemAt(src)
	require.NotNil(t, light, "источник света доходит до нового игрока")
	assert.Equal(t, byte(14), light.Strength)
	_, item := joiner.LightAt(src)
	assert.Equal(t, byte(14), item, "свет источника учтён при загрузке")

	_, clutter := joiner.StaticItemAt(vec.Position{X: 8, Y: 6, Z: 8})
	require.NotNil(t, clutter)
	assert.Equal(t, uint8(2), clutter.Kind)

	got, ok := joiner.BlockItem(itemID)
	require.True(t, ok, "выпавший блок сохраняет ID")
	assert.Equal(t, block.Sand, got.BlockType)
	assert.Greater(t, joiner.NextID(), itemID, "новые ID не пересекаются с загруженными")
}

// toClient доставляет ответы сервера клиенту через провод
func toClient(t *testing.T, ctx *Context, sent []Action) {
	t.Helper()
	for _, a := range sent {
		tag, payload := Encode(a)
		decoded, err := Decode(tag, payload, world.RoleClient)
		require.NoError(t, err)
		require.NoError(t, decoded.Apply(ctx))
	}
}

func TestRejectedCuboidIsUndoneOnClient(t *testing.T) {
	sctx, r, peer := serverContext(t)
	cw, _ := testWorld(t, world.RoleClient)
	for _, w := range []*world.World{sctx.World, cw} {
		for x := 2; x <= 4; x++ {
			for z := 2; z <= 4; z++ {
				w.PlaceBlock(vec.Position{X: x, Y: 5, Z: z}, block.Grass, true)
			}
		}
	}
	require.NoError(t, (&Connect{Name: "eve", Version: world.ProtocolVersion}).Apply(sctx))
	p, _ := sctx.World.Player(peer.PlayerID())
	p.SetCreative(true)
	sctx.World.AddPlayer(world.NewPlayer(0, "bob", vec.Coords{Xf: 3.5, Yf: 6, Zf: 3.5}, false))
	r.sent = nil

	me := cw.AddPlayer(world.NewPlayer(peer.PlayerID(), "eve", vec.Coords{Xf: 20, Yf: 6, Zf: 20}, true))
	cr := &fakeReplicator{}
	cctx := &Context{Role: world.RoleClient, World: cw, Replicator: cr, PlayerID: me}
	lo, hi := vec.Position{X: 2, Y: 6, Z: 2}, vec.Position{X: 4, Y: 7, Z: 4}
	require.NoError(t, Submit(cctx, &AddCuboid{Min: lo, Max: hi, BlockType: block.Planks}))
	require.Equal(t, block.Planks, cw.BlockType(vec.Position{X: 3, Y: 6, Z: 3}), "клиент применил заливку у себя")
	require.Equal(t, block.Dirt, cw.BlockType(vec.Position{X: 3, Y: 5, Z: 3}))

	tag, payload := Encode(cr.sent[0])
	in, err := Decode(tag, payload, world.RoleServer)
	require.NoError(t, err)
	require.NoError(t, in.Apply(sctx), "отказ не рвёт соединение")

	assert.Equal(t, block.Air, sctx.World.BlockType(vec.Position{X: 3, Y: 6, Z: 3}), "сервер заливку не применил")
	require.Greater(t, len(r.sent), 1, "кроме сообщения есть исправление")
	assert.IsType(t, &ServerMsg{}, r.sent[0])

	toClient(t, cctx, r.sent)
	cw.WaitIdle()
	assert.Equal(t, block.Air, cw.BlockType(vec.Position{X: 3, Y: 6, Z: 3}))
	assert.Equal(t, block.Grass, cw.BlockType(vec.Position{X: 3, Y: 5, Z: 3}), "трава под заливкой восстановлена")
	assert.Equal(t, sctx.World.Digest(), cw.Digest(), "копии сошлись")
}

func TestRestoreCuboidSplitsLargeBoxes(t *testing.T) {
	w, _ := testWorld(t, world.RoleServer)
	fixes := restoreCuboid(w, vec.Position{X: -5, Y: 1, Z: 0}, vec.Position{X: 31, Y: 9, Z: 31})

	total := 0
	for _, f := range fixes {
		edits := f.(*AddBlockMulti).Edits
		assert.LessOrEqual(t, len(edits), MaxMultiEdits)
		total += len(edits)
	}
	assert.Equal(t, 32*10*32, total, "область обрезана миром и дополнена слоем снизу")
	last := fixes[len(fixes)-1].(*AddBlockMulti).Edits
	assert.Equal(t, 0, last[len(last)-1].Pos.Y, "нижний слой идёт последним")
}

func TestRefusedCreativeIsResetOnClient(t *testing.T) {
	sctx, r, peer := serverContext(t)
	require.False(t, sctx.World.Settings().Creative)
	require.NoError(t, (&Connect{Name: "eve", Version: world.ProtocolVersion}).Apply(sctx))
	r.sent = nil

	cw, n := testWorld(t, world.RoleClient)
	me := cw.AddPlayer(world.NewPlayer(peer.PlayerID(), "eve", vec.Coords{}, false))
	cctx := &Context{Role: world.RoleClient, World: cw, Replicator: &fakeReplicator{}, PlayerID: me}
	require.NoError(t, Submit(cctx, &PlayerOption{PlayerID: me, Option: OptionCreative, Value: 1}))
	cp, _ := cw.Player(me)
	require.True(t, cp.Creative())

	require.NoError(t, (&PlayerOption{PlayerID: peer.PlayerID(), Option: OptionCreative, Value: 1}).Apply(sctx))

	sp, _ := sctx.World.Player(peer.PlayerID())
	assert.False(t, sp.Creative())
	require.Len(t, r.sent, 2)
	toClient(t, cctx, r.sent)
	assert.False(t, cp.Creative(), "клиент вернулся в обычный режим")
	assert.NotEmpty(t, n.msgs)
}

func TestClientLandsKnownBlockItem(t *testing.T) {
	w, _ := testWorld(t, world.RoleClient)
	ctx := &Context{Role: world.RoleClient, World: w, Replicator: &fakeReplicator{}}

	spawn := &AddBlockItem{ID: 77, BlockType: block.Dirt, Coords: vec.NewCoords(4.5, 9, 4.5), Velocity: [3]float32{0, -2, 0}}
	toClient(t, ctx, []Action{spawn})
	item, ok := w.BlockItem(77)
	require.True(t, ok)
	item.SetFalling(true)

	toClient(t, ctx, []Action{&AddBlockItem{ID: 77, BlockType: block.Dirt, Coords: vec.NewCoords(4.5, 6, 4.5)}})

	assert.Len(t, w.BlockItems(), 1, "повтор ID не создаёт второй предмет")
	assert.Equal(t, float32(6), item.Coords().Yf)
	assert.False(t, item.Falling())
	assert.Equal(t, [3]float32{}, item.Velocity())
}
