package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"waha-crm/internal/domain"
)

// State es el estado de la conexión administrada.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

const (
	defaultInitialDelay = time.Second
	defaultMaxDelay     = 30 * time.Second
	defaultHeartbeat    = 25 * time.Second
	writeWait           = 10 * time.Second

	// Solo uno de cada tantos reintentos se registra, para no inundar el log.
	logEveryAttempts = 5
)

var ErrNotConnected = errors.New("ws client not connected")

// Handler recibe todo evento entrante no reservado, en el orden de llegada.
type Handler func(event domain.Event)

// Config parametriza el cliente; los ceros toman los defaults del paquete.
type Config struct {
	URL               string
	Header            http.Header
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	HeartbeatInterval time.Duration
	Handler           Handler
	Logger            *zap.Logger
}

// Client mantiene una conexión websocket con reconexión automática y
// heartbeat. Una única goroutine es dueña del socket y del estado; el resto
// del programa interactúa por Send, State y Close.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *zap.Logger

	state    atomic.Int32
	attempts atomic.Int32

	sendCh chan domain.Event

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
}

func New(cfg Config) *Client {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeat
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		logger: cfg.Logger,
		sendCh: make(chan domain.Event, 16),
		done:   make(chan struct{}),
	}
}

// Connect habilita la conexión. El ciclo de reconexión corre hasta Close o
// hasta que ctx se cancele.
func (c *Client) Connect(ctx context.Context) {
	c.startOnce.Do(func() {
		c.ctx, c.cancel = context.WithCancel(ctx)
		go c.run()
	})
}

// Close es la desconexión manual: cancela reintentos pendientes, corta el
// heartbeat y cierra el socket. No habrá reconexión automática después.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.cancel == nil {
			c.setState(StateDisconnected)
			close(c.done)
			return
		}
		c.setState(StateClosing)
		c.cancel()
		<-c.done
	})
}

// Send encola un payload saliente. Los mensajes con la conexión caída se
// pierden, no se encolan para después.
func (c *Client) Send(event domain.Event) error {
	if c.State() != StateOpen {
		return ErrNotConnected
	}
	select {
	case c.sendCh <- event:
		return nil
	case <-c.ctx.Done():
		return ErrNotConnected
	}
}

// State devuelve el estado actual de la conexión.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Attempts devuelve el contador de reintentos vigente; vuelve a cero tras
// cada conexión exitosa.
func (c *Client) Attempts() int {
	return int(c.attempts.Load())
}

// Done se cierra cuando el ciclo terminó definitivamente.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// run es la goroutine dueña del socket: conecta, atiende y reintenta.
func (c *Client) run() {
	defer func() {
		c.setState(StateDisconnected)
		close(c.done)
	}()

	firstDial := true
	for {
		if c.ctx.Err() != nil {
			return
		}

		if !firstDial {
			attempt := int(c.attempts.Load())
			delay := Backoff(attempt, c.cfg.InitialDelay, c.cfg.MaxDelay)
			if attempt%logEveryAttempts == 0 {
				c.logger.Warn("ws reconnect scheduled",
					zap.Int("attempt", attempt),
					zap.Duration("delay", delay),
				)
			}
			c.attempts.Add(1)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-c.ctx.Done():
				timer.Stop()
				return
			}
		}
		firstDial = false

		c.setState(StateConnecting)
		conn, _, err := c.dialer.DialContext(c.ctx, c.cfg.URL, c.cfg.Header)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.setState(StateDisconnected)
			continue
		}

		c.attempts.Store(0)
		c.setState(StateOpen)
		c.logger.Info("ws connected", zap.String("url", c.cfg.URL))

		c.serve(conn)

		c.setState(StateDisconnected)
		if c.ctx.Err() != nil {
			return
		}
		c.logger.Warn("ws connection lost")
	}
}

// serve atiende una conexión abierta hasta que muera o llegue el cierre
// manual. Corre en la goroutine dueña; nadie más escribe en el socket.
func (c *Client) serve(conn *websocket.Conn) {
	defer conn.Close()

	events := make(chan domain.Event)
	readErr := make(chan error, 1)
	go c.readLoop(conn, events, readErr)

	heartbeat := time.NewTicker(c.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case err := <-readErr:
			c.logger.Warn("ws read failed", zap.Error(err))
			return

		case event := <-events:
			switch event.Type {
			case domain.EventPong, domain.EventConnected:
				// Reservados: se consumen, nunca llegan al handler.
			default:
				if c.cfg.Handler != nil {
					c.cfg.Handler(event)
				}
			}

		case event := <-c.sendCh:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				c.logger.Warn("ws write failed", zap.Error(err))
				return
			}

		case <-heartbeat.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(domain.Event{Type: domain.EventPing}); err != nil {
				c.logger.Warn("ws heartbeat failed", zap.Error(err))
				return
			}
		}
	}
}

// readLoop parsea frames entrantes; los malformados se registran y se saltean.
func (c *Client) readLoop(conn *websocket.Conn, events chan<- domain.Event, readErr chan<- error) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}

		var event domain.Event
		if err := json.Unmarshal(payload, &event); err != nil || event.Type == "" {
			c.logger.Warn("ws malformed payload", zap.Error(err))
			continue
		}

		select {
		case events <- event:
		case <-c.ctx.Done():
			return
		}
	}
}
