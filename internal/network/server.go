package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// Игровое время: 20 тиков в секунду, сутки 24000 тиков
const (
	TicksPerSecond = 20
	DayLength      = 24000
	automataPeriod = time.Second
	eventSource    = "server"
	storeTimeout   = 2 * time.Second
)

// Saver сохраняет мир (файл или badger)
type Saver interface {
	Save(ctx context.Context, w *world.World) error
}

// PeerInfo сведения о соединении для админки
type PeerInfo struct {
	SessionID   string    `json:"session_id"`
	PlayerID    int32     `json:"player_id"`
	Name        string    `json:"name"`
	RemoteAddr  string    `json:"remote_addr"`
	Admitted    bool      `json:"admitted"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Server авторитетный сервер: принимает соединения, применяет действия
// пиров к общему миру и рассылает их остальным.
type Server struct {
	cfg       config.ServerConfig
	addr      string
	w         *world.World
	saver     Saver
	events    eventbus.EventBus
	positions storage.PositionRepo

	listener net.Listener

	mu    sync.RWMutex
	peers map[string]*Peer

	base   protocol.Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	tracer trace.Tracer
	logger *logging.Logger
}

// ServerOption настраивает сервер
type ServerOption func(*Server)

// WithSaver подключает хранилище для периодического сохранения
func WithSaver(s Saver) ServerOption {
	return func(srv *Server) { srv.saver = s }
}

// WithEvents публикует вход, выход, чат и сохранения в шину событий
func WithEvents(bus eventbus.EventBus) ServerOption {
	return func(srv *Server) { srv.events = bus }
}

// WithPositions возвращает вернувшихся игроков туда, где они вышли
func WithPositions(repo storage.PositionRepo) ServerOption {
	return func(srv *Server) { srv.positions = repo }
}

// WithAddr переопределяет адрес прослушивания (по умолчанию :tcp_port)
func WithAddr(addr string) ServerOption {
	return func(srv *Server) { srv.addr = addr }
}

// NewServer создаёт сервер поверх готового мира
func NewServer(cfg config.ServerConfig, w *world.World, opts ...ServerOption) *Server {
	s := &Server{
		cfg:    cfg,
		addr:   fmt.Sprintf(":%d", cfg.GetTCPPort()),
		w:      w,
		peers:  make(map[string]*Peer),
		tracer: otel.Tracer("blockverse/network"),
		logger: logging.GetNetworkLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxFrameSize <= 0 {
		s.cfg.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	def := config.Default().Server
	if s.cfg.OutboundQueue <= 0 {
		s.cfg.OutboundQueue = def.OutboundQueue
	}
	if s.cfg.SyncInterval <= 0 {
		s.cfg.SyncInterval = def.SyncInterval
	}
	if s.cfg.HandshakeTimeout <= 0 {
		s.cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	s.base = protocol.Context{Role: world.RoleServer, World: w, Replicator: s, Spawn: s.spawnFor, Logger: s.logger}
	return s
}

// Start открывает слушатель и запускает фоновые циклы
func (s *Server) Start(ctx context.Context) error {
	l, err := Listen(s.cfg.Transport, s.addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(3)
	go s.acceptLoop()
	go s.syncLoop()
	go s.automataLoop()
	if s.saver != nil && s.cfg.SaveInterval > 0 {
		s.wg.Add(1)
		go s.saveLoop()
	}
	s.logger.Info("сервер слушает %s (%s)", l.Addr(), s.cfg.Transport)
	return nil
}

// Addr адрес слушателя
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// World общий мир сервера
func (s *Server) World() *world.World { return s.w }

// Stop закрывает слушатель и все соединения, затем сохраняет мир
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	for _, p := range s.snapshot() {
		s.drop(p, "shutdown", nil)
	}
	s.wg.Wait()
	if s.saver != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Save(ctx); err != nil {
			s.logger.Error("сохранение при остановке: %v", err)
		}
	}
	s.logger.Info("сервер остановлен")
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("ошибка принятия соединения: %v", err)
			continue
		}
		prepareConn(conn)
		p := newPeer(conn, s.cfg.OutboundQueue)
		s.mu.Lock()
		s.peers[p.id] = p
		n := len(s.peers)
		s.mu.Unlock()
		metrics.Peers.Set(float64(n))
		s.logger.Info("новое соединение %s от %s", p.id, conn.RemoteAddr())

		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			p.writeLoop(func(err error) { s.drop(p, "io", err) })
		}()
		go s.readLoop(p)
	}
}

// readLoop цикл чтения одного пира. До рукопожатия действует таймаут
// чтения; первым кадром должен быть Connect.
func (s *Server) readLoop(p *Peer) {
	defer s.wg.Done()
	_ = p.conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	ctx := s.base.From(p)
	for {
		tag, payload, err := protocol.ReadFrame(p.conn, s.cfg.MaxFrameSize)
		if err != nil {
			s.drop(p, classify(err), err)
			return
		}
		a, err := protocol.Decode(tag, payload, world.RoleServer)
		if err != nil {
			s.logger.LogProtocolError(p.id, err, payload)
			s.drop(p, "violation", err)
			return
		}
		if !p.Admitted() && tag != protocol.TypeConnect {
			s.drop(p, "violation", fmt.Errorf("%w: %s до рукопожатия", protocol.ErrProtocolViolation, protocol.Name(tag)))
			return
		}
		_ = a.BindPeer(p)
		metrics.ActionsIn.WithLabelValues(protocol.Name(tag)).Inc()
		wasAdmitted := p.Admitted()
		if err := s.apply(ctx, a); err != nil {
			s.drop(p, classify(err), err)
			return
		}
		switch a := a.(type) {
		case *protocol.Connect:
			if !wasAdmitted && p.Admitted() {
				s.publish(eventbus.PlayerJoined, 1, eventbus.PlayerEvent{PlayerID: p.PlayerID(), Name: a.Name, Session: p.id})
			}
		case *protocol.ChatMsg:
			s.publish(eventbus.Chat, 0, eventbus.ChatEvent{From: a.From, Text: a.Text})
		}
	}
}

// publish событие в шину, если она подключена
func (s *Server) publish(eventType string, priority int, payload any) {
	if s.events == nil {
		return
	}
	// отдельный контекст: события остановки публикуются после отмены s.ctx
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	ev, err := eventbus.New(eventSource, eventType, priority, payload)
	if err == nil {
		err = s.events.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn("событие %s: %v", eventType, err)
	}
}

// spawnFor точка появления: сохранённая позиция игрока или центр мира
func (s *Server) spawnFor(name string) vec.Coords {
	if s.positions != nil {
		ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
		defer cancel()
		c, found, err := s.positions.Load(ctx, name)
		if err != nil {
			s.logger.Warn("позиция %s: %v", name, err)
		}
		if found && s.w.IsValidBlockLocation(c.ToPosition()) {
			return c
		}
	}
	return s.w.SpawnPoint()
}

// savePositions сохраняет координаты всех игроков онлайн
func (s *Server) savePositions(ctx context.Context) error {
	if s.positions == nil {
		return nil
	}
	batch := make(map[string]vec.Coords)
	for _, p := range s.w.Players() {
		if p.Name != "" {
			batch[p.Name] = p.Coords()
		}
	}
	return s.positions.BatchSave(ctx, batch)
}

func (s *Server) apply(ctx *protocol.Context, a protocol.Action) error {
	_, span := s.tracer.Start(s.ctx, "action.apply", trace.WithAttributes(
		attribute.String("action", protocol.Name(a.Type())),
		attribute.String("session", ctx.Peer.SessionID()),
	))
	defer span.End()
	err := a.Apply(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// classify причина отключения для логов и метрик
func classify(err error) string {
	switch {
	case err == nil:
		return "shutdown"
	case errors.Is(err, protocol.ErrPeerLeft):
		return "left"
	case errors.Is(err, io.EOF):
		return "eof"
	case errors.Is(err, protocol.ErrVersionMismatch):
		return "version"
	case errors.Is(err, protocol.ErrProtocolViolation),
		errors.Is(err, protocol.ErrUnknownAction),
		errors.Is(err, protocol.ErrFrameTooLarge),
		errors.Is(err, protocol.ErrPayloadLength):
		return "violation"
	case errors.Is(err, os.ErrDeadlineExceeded):
		return "timeout"
	case errors.Is(err, errQueueFull):
		return "slow"
	}
	return "io"
}

// drop убирает пира из реестра, закрывает сокет и оповещает остальных.
// Повторный вызов для того же пира ничего не делает.
func (s *Server) drop(p *Peer, reason string, err error) {
	s.mu.Lock()
	_, ok := s.peers[p.id]
	delete(s.peers, p.id)
	n := len(s.peers)
	s.mu.Unlock()
	if !ok {
		return
	}
	p.close()
	metrics.Peers.Set(float64(n))
	metrics.Disconnects.WithLabelValues(reason).Inc()

	switch reason {
	case "left", "shutdown", "eof":
		s.logger.Info("пир %s отключён (%s)", p.id, reason)
	default:
		s.logger.Warn("пир %s отключён (%s): %v", p.id, reason, err)
	}

	if !p.Admitted() {
		return
	}
	id := p.PlayerID()
	var name string
	if pl, ok := s.w.Player(id); ok {
		name = pl.Name
		if s.positions != nil && name != "" {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			if err := s.positions.Save(ctx, name, pl.Coords()); err != nil {
				s.logger.Warn("сохранение позиции %s: %v", name, err)
			}
			cancel()
		}
	}
	s.w.RemovePlayer(id)
	s.publish(eventbus.PlayerLeft, 1, eventbus.PlayerEvent{PlayerID: id, Name: name, Session: p.id, Reason: reason})
	if reason != "shutdown" {
		s.Broadcast(p, func() protocol.Action { return &protocol.Disconnect{PlayerID: id} })
	}
}

func (s *Server) snapshot() []*Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].connectedAt.Before(out[j].connectedAt) })
	return out
}

// --- protocol.Replicator ---

// Send доставляет действие пиру, к которому оно привязано. Срочные
// действия пишутся сразу, минуя очередь.
func (s *Server) Send(a protocol.Action, immediate bool) error {
	p, ok := a.Peer().(*Peer)
	if !ok || p == nil {
		return fmt.Errorf("действие %s не привязано к пиру", protocol.Name(a.Type()))
	}
	var err error
	if immediate {
		err = p.write(a)
	} else {
		err = p.enqueue(a)
	}
	if err != nil {
		s.drop(p, classify(err), err)
	}
	return err
}

// Broadcast рассылает новые экземпляры всем допущенным пирам, кроме except
func (s *Server) Broadcast(except protocol.Peer, build func() protocol.Action) {
	for _, p := range s.snapshot() {
		if !p.Admitted() || (except != nil && protocol.Peer(p) == except) {
			continue
		}
		a := build()
		if err := a.BindPeer(p); err != nil {
			s.logger.Error("привязка %s: %v", protocol.Name(a.Type()), err)
			continue
		}
		if err := p.enqueue(a); err != nil {
			s.drop(p, classify(err), err)
		}
	}
}

// --- служебные операции ---

// BroadcastMessage системное сообщение всем игрокам
func (s *Server) BroadcastMessage(text string) {
	s.Broadcast(nil, func() protocol.Action { return &protocol.ServerMsg{Text: text} })
}

// Peers сведения о соединениях
func (s *Server) Peers() []PeerInfo {
	var out []PeerInfo
	for _, p := range s.snapshot() {
		info := PeerInfo{
			SessionID:   p.id,
			PlayerID:    p.PlayerID(),
			RemoteAddr:  p.RemoteAddr(),
			Admitted:    p.Admitted(),
			ConnectedAt: p.connectedAt,
		}
		if pl, ok := s.w.Player(info.PlayerID); ok {
			info.Name = pl.Name
		}
		out = append(out, info)
	}
	return out
}

// Save сохраняет мир через подключённое хранилище
func (s *Server) Save(ctx context.Context) error {
	if s.saver == nil {
		return errors.New("хранилище мира не подключено")
	}
	start := time.Now()
	if err := s.saver.Save(ctx, s.w); err != nil {
		metrics.WorldSaves.WithLabelValues("error").Inc()
		s.publish(eventbus.WorldSaved, 9, eventbus.SaveEvent{Duration: time.Since(start), Error: err.Error()})
		return err
	}
	metrics.WorldSaves.WithLabelValues("ok").Inc()
	if err := s.savePositions(ctx); err != nil {
		s.logger.Warn("сохранение позиций игроков: %v", err)
	}
	s.publish(eventbus.WorldSaved, 5, eventbus.SaveEvent{Duration: time.Since(start)})
	s.logger.Info("мир сохранён за %v", time.Since(start))
	return nil
}

// Sync продвигает игровое время на elapsed и рассылает положение солнца
// вместе с дайджестом блоков
func (s *Server) Sync(elapsed time.Duration) {
	st := s.w.Settings()
	gameTime := (st.GameTime + int32(elapsed.Seconds()*TicksPerSecond)) % DayLength
	sun := SunDegrees(gameTime)
	s.w.SetTime(gameTime, sun)
	digest := s.w.Digest()
	s.Broadcast(nil, func() protocol.Action {
		return &protocol.ServerSync{GameTime: gameTime, SunDegrees: sun, Digest: digest}
	})
}

// SunDegrees положение солнца для игрового времени: 0 на рассвете
func SunDegrees(gameTime int32) float32 {
	return float32(gameTime%DayLength) / DayLength * 360
}

// TickAutomata шаг клеточных автоматов с рассылкой результата
func (s *Server) TickAutomata() int {
	edits := s.w.TickAutomata()
	if len(edits) == 0 {
		return 0
	}
	for start := 0; start < len(edits); start += protocol.MaxMultiEdits {
		batch := edits[start:min(start+protocol.MaxMultiEdits, len(edits))]
		s.Broadcast(nil, func() protocol.Action { return &protocol.AddBlockMulti{Edits: batch} })
	}
	return len(edits)
}

// SettleItems опускает падающие предметы и рассылает их новые позиции.
// Клиент, знающий предмет с таким ID, просто кладёт его на место.
func (s *Server) SettleItems() int {
	landed := s.w.SettleItems()
	for _, it := range landed {
		id, t, c := it.ID, it.BlockType, it.Coords()
		s.Broadcast(nil, func() protocol.Action {
			return &protocol.AddBlockItem{ID: id, BlockType: t, Coords: c}
		})
	}
	return len(landed)
}

func (s *Server) syncLoop() {
	defer s.wg.Done()
	t := time.NewTicker(s.cfg.SyncInterval)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			s.Sync(s.cfg.SyncInterval)
		}
	}
}

func (s *Server) automataLoop() {
	defer s.wg.Done()
	t := time.NewTicker(automataPeriod)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			if n := s.TickAutomata(); n > 0 {
				s.logger.Debug("автоматы: %d правок", n)
			}
			s.SettleItems()
		}
	}
}

func (s *Server) saveLoop() {
	defer s.wg.Done()
	t := time.NewTicker(s.cfg.SaveInterval)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			if err := s.Save(s.ctx); err != nil {
				s.logger.Error("периодическое сохранение: %v", err)
			}
		}
	}
}
