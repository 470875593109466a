package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/world"
)

// ClientOptions параметры сетевой сессии клиента
type ClientOptions struct {
	Transport        string
	Address          string
	Name             string
	Retries          int
	Backoff          time.Duration
	DialTimeout      time.Duration
	HandshakeTimeout time.Duration
	MaxFrameSize     int

	// WorldOptions передаются загружаемому миру (конвейер, UI)
	WorldOptions []world.Option
	// OnSkyChange вызывается при заметной смене освещённости неба
	OnSkyChange func()
}

// ClientOptionsFrom собирает параметры клиента из конфигурации
func ClientOptionsFrom(cfg *config.Config) ClientOptions {
	return ClientOptions{
		Transport:        cfg.Server.Transport,
		Address:          cfg.Client.ServerAddress,
		Name:             cfg.Client.PlayerName,
		Retries:          cfg.Client.ConnectRetries,
		Backoff:          cfg.Client.RetryBackoff,
		DialTimeout:      5 * time.Second,
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		MaxFrameSize:     cfg.Server.MaxFrameSize,
	}
}

// Client сессия игрока на сервере. После Join держит загруженный мир,
// а Run применяет к нему входящие действия.
type Client struct {
	opts ClientOptions
	conn net.Conn

	writeMu sync.Mutex
	closed  atomic.Bool

	w     *world.World
	pctx  protocol.Context
	ready atomic.Bool

	logger *logging.Logger
}

// Join подключается (с повторами), проходит рукопожатие и загружает мир
func Join(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 15 * time.Second
	}
	c := &Client{opts: opts, logger: logging.GetNetworkLogger()}
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	if err := c.handshake(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	attempts := max(1, c.opts.Retries)
	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := Dial(c.opts.Transport, c.opts.Address, c.opts.DialTimeout)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		c.logger.Warn("попытка %d/%d подключения к %s: %v", i, attempts, c.opts.Address, err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.opts.Backoff):
		}
	}
	return nil, protocol.Disconnected(fmt.Sprintf("не удалось подключиться к %s", c.opts.Address), lastErr)
}

// handshake Connect, затем GetWorld. Действия, пришедшие до мира,
// откладываются и применяются после его загрузки.
func (c *Client) handshake(ctx context.Context) error {
	_ = c.conn.SetDeadline(time.Now().Add(c.opts.HandshakeTimeout))

	if err := c.write(&protocol.Connect{Name: c.opts.Name, Version: world.ProtocolVersion}); err != nil {
		return protocol.Disconnected("ошибка отправки рукопожатия", err)
	}
	var welcome *protocol.Connect
	var refusal string
	for welcome == nil {
		a, err := c.read()
		if err != nil {
			if refusal != "" {
				return &protocol.DisconnectError{Reason: refusal, Err: protocol.ErrVersionMismatch}
			}
			return protocol.Disconnected("сервер закрыл соединение при рукопожатии", err)
		}
		switch a := a.(type) {
		case *protocol.Connect:
			welcome = a
		case *protocol.ServerMsg:
			refusal = a.Text
		default:
			return protocol.Disconnected("нарушение рукопожатия",
				fmt.Errorf("%w: %s до ответа на Connect", protocol.ErrProtocolViolation, protocol.Name(a.Type())))
		}
	}
	c.logger.Info("допущен как %d (%s)", welcome.PlayerID, welcome.Name)

	if err := c.write(&protocol.GetWorld{}); err != nil {
		return protocol.Disconnected("ошибка запроса мира", err)
	}
	var pending []protocol.Action
	var payload []byte
	for payload == nil {
		a, err := c.read()
		if err != nil {
			return protocol.Disconnected("ошибка загрузки мира", err)
		}
		if gw, ok := a.(*protocol.GetWorld); ok {
			payload = gw.Payload
			continue
		}
		pending = append(pending, a)
	}

	start := time.Now()
	w, err := world.ReadPayload(bytes.NewReader(payload), world.RoleClient, c.opts.WorldOptions...)
	if err != nil {
		return protocol.Disconnected("повреждённый мир", err)
	}
	if err := w.FinalizeLoad(ctx); err != nil {
		w.Close()
		return protocol.Disconnected("ошибка подготовки мира", err)
	}
	w.AddPlayer(world.NewPlayer(welcome.PlayerID, welcome.Name, welcome.Coords, w.Settings().Creative))
	c.w = w
	c.pctx = protocol.Context{
		Role:        world.RoleClient,
		World:       w,
		Replicator:  c,
		PlayerID:    welcome.PlayerID,
		OnSkyChange: c.opts.OnSkyChange,
		Logger:      c.logger,
	}
	c.logger.Info("мир загружен: %d байт за %v", len(payload), time.Since(start))

	for _, a := range pending {
		if err := a.Apply(&c.pctx); err != nil {
			return c.applyFailure(a, err)
		}
	}
	_ = c.conn.SetDeadline(time.Time{})
	c.ready.Store(true)
	return nil
}

func (c *Client) read() (protocol.Action, error) {
	tag, payload, err := protocol.ReadFrame(c.conn, c.opts.MaxFrameSize)
	if err != nil {
		return nil, err
	}
	a, err := protocol.Decode(tag, payload, world.RoleClient)
	if err != nil {
		c.logger.LogProtocolError(c.opts.Address, err, payload)
		return nil, err
	}
	metrics.ActionsIn.WithLabelValues(protocol.Name(tag)).Inc()
	return a, nil
}

func (c *Client) write(a protocol.Action) error {
	tag, payload := protocol.Encode(a)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := protocol.WriteFrame(c.conn, tag, payload); err != nil {
		return err
	}
	metrics.ActionsOut.WithLabelValues(protocol.Name(tag)).Inc()
	return nil
}

// applyFailure ошибка применения: явное отключение возвращается как есть,
// остальное требует перезапуска сессии
func (c *Client) applyFailure(a protocol.Action, err error) error {
	var de *protocol.DisconnectError
	if errors.As(err, &de) {
		return de
	}
	return &protocol.DisconnectError{
		Reason:  fmt.Sprintf("ошибка применения %s", protocol.Name(a.Type())),
		Err:     err,
		Restart: true,
	}
}

// Run цикл чтения. Возвращает nil при отмене ctx и DisconnectError в
// остальных случаях.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()
	for {
		a, err := c.read()
		if err != nil {
			if ctx.Err() != nil || c.closed.Load() {
				return nil
			}
			if errors.Is(err, protocol.ErrUnknownAction) || errors.Is(err, protocol.ErrProtocolViolation) ||
				errors.Is(err, protocol.ErrPayloadLength) || errors.Is(err, protocol.ErrFrameTooLarge) {
				return &protocol.DisconnectError{Reason: "нарушение протокола сервером", Err: err}
			}
			return protocol.Disconnected("соединение с сервером потеряно", err)
		}
		if err := a.Apply(&c.pctx); err != nil {
			return c.applyFailure(a, err)
		}
	}
}

// World загруженный мир
func (c *Client) World() *world.World { return c.w }

// PlayerID идентификатор локального игрока
func (c *Client) PlayerID() int32 { return c.pctx.PlayerID }

// Context контекст применения локальных действий
func (c *Client) Context() *protocol.Context { return &c.pctx }

// Submit выполняет действие локального игрока
func (c *Client) Submit(a protocol.Action) error {
	return protocol.Submit(&c.pctx, a)
}

// Send отправляет действие на сервер; у клиента очереди нет
func (c *Client) Send(a protocol.Action, _ bool) error {
	if c.closed.Load() {
		return protocol.Disconnected("соединение закрыто", net.ErrClosed)
	}
	if err := c.write(a); err != nil {
		return protocol.Disconnected("ошибка отправки на сервер", err)
	}
	return nil
}

// Broadcast у клиента ничего не делает
func (c *Client) Broadcast(protocol.Peer, func() protocol.Action) {}

// Close прощается с сервером и закрывает соединение и мир
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.ready.Load() {
		_ = c.write(&protocol.Disconnect{PlayerID: c.pctx.PlayerID})
	}
	err := c.conn.Close()
	if c.w != nil {
		c.w.Close()
	}
	return err
}
