package protocol

import (
	"fmt"

	"github.com/annel0/blockverse/internal/world"
)

// Теги действий на проводе
const (
	TypeConnect Type = iota + 1
	TypeDisconnect
	TypeGetWorld
	TypePlayerMove
	TypeChatMsg
	TypeServerMsg
	TypeServerSync
	TypeAddBlock
	TypeRemoveBlock
	TypeAddBlockMulti
	TypeAddCuboid
	TypeAddStaticItem
	TypeAddBlockItem
	TypeRemoveBlockItem
	TypePlayerOption
	TypePing
)

// definition строка таблицы действий
type definition struct {
	tag      Type
	name     string
	toServer bool
	toClient bool
	// echo клиент применяет действие у себя до отправки
	echo bool
	new  func() Action
}

// tag, имя, клиент->сервер, сервер->клиент, эхо, конструктор
var definitions = []definition{
	{TypeConnect, "Connect", true, true, false, func() Action { return &Connect{} }},
	{TypeDisconnect, "Disconnect", true, true, false, func() Action { return &Disconnect{} }},
	{TypeGetWorld, "GetWorld", true, true, false, func() Action { return &GetWorld{} }},
	{TypePlayerMove, "PlayerMove", true, true, true, func() Action { return &PlayerMove{} }},
	{TypeChatMsg, "ChatMsg", true, true, true, func() Action { return &ChatMsg{} }},
	{TypeServerMsg, "ServerMsg", false, true, false, func() Action { return &ServerMsg{} }},
	{TypeServerSync, "ServerSync", false, true, false, func() Action { return &ServerSync{} }},
	{TypeAddBlock, "AddBlock", true, true, true, func() Action { return &AddBlock{} }},
	{TypeRemoveBlock, "RemoveBlock", true, true, true, func() Action { return &RemoveBlock{} }},
	{TypeAddBlockMulti, "AddBlockMulti", true, true, true, func() Action { return &AddBlockMulti{} }},
	{TypeAddCuboid, "AddCuboid", true, true, true, func() Action { return &AddCuboid{} }},
	{TypeAddStaticItem, "AddStaticItem", true, true, false, func() Action { return &AddStaticItem{} }},
	{TypeAddBlockItem, "AddBlockItem", true, true, false, func() Action { return &AddBlockItem{} }},
	{TypeRemoveBlockItem, "RemoveBlockItem", true, true, true, func() Action { return &RemoveBlockItem{} }},
	{TypePlayerOption, "PlayerOption", true, true, true, func() Action { return &PlayerOption{} }},
	{TypePing, "Ping", true, true, false, func() Action { return &Ping{} }},
}

// Registry закрытая таблица тег -> конструктор
type Registry struct {
	byTag map[Type]definition
}

// NewRegistry строит таблицу и проверяет её: без дублей, без дыр в
// нумерации, тег конструктора совпадает с тегом строки.
func NewRegistry(defs []definition) (*Registry, error) {
	r := &Registry{byTag: make(map[Type]definition, len(defs))}
	for _, d := range defs {
		if d.new == nil {
			return nil, fmt.Errorf("действие %d (%s) без конструктора", d.tag, d.name)
		}
		if _, dup := r.byTag[d.tag]; dup {
			return nil, fmt.Errorf("дублирующийся тег действия %d (%s)", d.tag, d.name)
		}
		if got := d.new().Type(); got != d.tag {
			return nil, fmt.Errorf("действие %s: конструктор даёт тег %d вместо %d", d.name, got, d.tag)
		}
		r.byTag[d.tag] = d
	}
	for t := Type(1); int(t) <= len(defs); t++ {
		if _, ok := r.byTag[t]; !ok {
			return nil, fmt.Errorf("пропущен тег действия %d", t)
		}
	}
	return r, nil
}

var defaultRegistry = mustRegistry()

func mustRegistry() *Registry {
	r, err := NewRegistry(definitions)
	if err != nil {
		panic(err)
	}
	return r
}

// Name имя действия для логов и метрик
func Name(t Type) string {
	if d, ok := defaultRegistry.byTag[t]; ok {
		return d.name
	}
	return fmt.Sprintf("unknown(%d)", t)
}

// Echoes применяет ли клиент действие у себя до отправки
func Echoes(t Type) bool {
	return defaultRegistry.byTag[t].echo
}

// New пустой экземпляр действия по тегу
func New(t Type) (Action, error) {
	d, ok := defaultRegistry.byTag[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, t)
	}
	return d.new(), nil
}

// Decode разбирает полезную нагрузку, принятую процессом роли role.
// Действие, не предназначенное для этого направления, считается
// нарушением протокола.
func Decode(t Type, payload []byte, role world.Role) (Action, error) {
	d, ok := defaultRegistry.byTag[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, t)
	}
	if role == world.RoleServer && !d.toServer {
		return nil, violation("%s не принимается сервером", d.name)
	}
	if role == world.RoleClient && !d.toClient {
		return nil, violation("%s не принимается клиентом", d.name)
	}
	a := d.new()
	r := NewReader(payload)
	a.Decode(r)
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", d.name, err)
	}
	return a, nil
}

// Encode сериализует действие в тег и полезную нагрузку
func Encode(a Action) (Type, []byte) {
	var w Writer
	a.Encode(&w)
	return a.Type(), w.Bytes()
}
