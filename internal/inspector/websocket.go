// Package inspector streams hand events to websocket clients for debugging.
package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/vrhand/internal/core/events/bus"
	"github.com/zeusync/vrhand/internal/core/observability/log"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Frame is the JSON message sent for every event.
type Frame struct {
	Type     string         `json:"type"`
	Source   string         `json:"source"`
	Time     time.Time      `json:"time"`
	Data     any            `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	prefixes []string
	once     sync.Once
}

func (c *client) wants(eventType string) bool {
	if len(c.prefixes) == 0 {
		return true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(eventType, p) {
			return true
		}
	}
	return false
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Server forwards every bus event to the connected clients. Clients can
// narrow the feed with ?events=grab.,hand.spawned (type prefixes).
type Server struct {
	bus     bus.EventBus
	sub     bus.Subscription
	mu      sync.Mutex
	clients map[*client]struct{}
	dropped uint64
	http    *http.Server
	addr    net.Addr
	log     log.Log
}

type Option func(*Server)

func WithLogger(l log.Log) Option {
	return func(s *Server) { s.log = log.OrNop(l) }
}

// New subscribes to every event on b.
func New(b bus.EventBus, opts ...Option) (*Server, error) {
	s := &Server{
		bus:     b,
		clients: make(map[*client]struct{}),
		log:     log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	sub, err := b.SubscribeAll(s.broadcast)
	if err != nil {
		return nil, err
	}
	s.sub = sub
	return s, nil
}

// Handler serves /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Start listens on addr in the background.
func (s *Server) Start(_ context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: writeTimeout}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("inspector stopped", log.Error(err))
		}
	}()
	s.log.Info("inspector listening", log.String("addr", s.addr.String()))
	return nil
}

// Addr is the bound address after Start.
func (s *Server) Addr() string {
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Stop unsubscribes from the bus, disconnects every client and shuts the
// listener down.
func (s *Server) Stop(ctx context.Context) error {
	_ = s.bus.Unsubscribe(s.sub)

	s.mu.Lock()
	for c := range s.clients {
		c.close()
		delete(s.clients, c)
	}
	s.mu.Unlock()

	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Clients counts connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Dropped counts frames skipped because a client fell behind.
func (s *Server) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Server) broadcast(e bus.Event) error {
	data, err := json.Marshal(Frame{
		Type:     e.Type(),
		Source:   e.Source(),
		Time:     e.Timestamp(),
		Data:     e.Data(),
		Metadata: e.Metadata(),
	})
	if err != nil {
		s.log.Warn("cannot encode event", log.String("event", e.Type()), log.Error(err))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if !c.wants(e.Type()) {
			continue
		}
		select {
		case c.send <- data:
		default:
			s.dropped++
		}
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if q := r.URL.Query().Get("events"); q != "" {
		for _, p := range strings.Split(q, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.prefixes = append(c.prefixes, p)
			}
		}
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Debug("inspector client connected", log.String("remote", conn.RemoteAddr().String()))

	go s.writeLoop(c)
	s.readLoop(c)
}

// readLoop discards client messages until the connection closes.
func (s *Server) readLoop(c *client) {
	defer func() {
		s.mu.Lock()
		if _, ok := s.clients[c]; ok {
			delete(s.clients, c)
			c.close()
		}
		s.mu.Unlock()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Debug("inspector write failed", log.Error(err))
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
