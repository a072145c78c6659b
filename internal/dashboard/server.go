// Package dashboard serves live sync status over WebSocket.
//
// Every connected client receives the current status snapshot on connect,
// then a message for each status change and each local-store change.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alexanderramin/cadence/internal/changefeed"
	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/alexanderramin/cadence/internal/orchestrator"
	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
)

// DefaultAddr keeps the dashboard on loopback unless configured otherwise.
const DefaultAddr = "127.0.0.1:7777"

type MessageType string

const (
	MessageTypeStatus MessageType = "status"
	MessageTypeChange MessageType = "change"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func newMessage(t MessageType, v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Timestamp: time.Now().UTC(), Data: data}, nil
}

type Config struct {
	Addr   string
	Logger *log.Logger
	Status *orchestrator.StatusStore
	Feed   *changefeed.Feed
}

// Server manages WebSocket clients and fans out status and change messages.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	status *orchestrator.StatusStore
	feed   *changefeed.Feed
	detach []func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *log.Logger
}

func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.With("dashboard")
	}
	if cfg.Status == nil {
		cfg.Status = orchestrator.NewStatusStore(orchestrator.Snapshot{})
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      cfg.Addr,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		status:    cfg.Status,
		feed:      cfg.Feed,
		ctx:       ctx,
		cancel:    cancel,
		log:       cfg.Logger,
	}
}

// Start listens, subscribes to status and change events and serves until
// Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.detach = append(s.detach, s.status.Subscribe(func(snap orchestrator.Snapshot) {
		s.publish(MessageTypeStatus, snap)
	}))
	if s.feed != nil {
		s.detach = append(s.detach, s.feed.Subscribe(func(c changefeed.Change) {
			s.publish(MessageTypeChange, c)
		}))
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("dashboard listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("dashboard server failed", "err", err)
		}
	}()
	return nil
}

// Stop closes every client and shuts the server down.
func (s *Server) Stop() error {
	for _, d := range s.detach {
		d()
	}
	s.detach = nil
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("dashboard shutdown: %w", err)
		}
	}
	s.wg.Wait()
	return nil
}

func (s *Server) publish(t MessageType, v any) {
	msg, err := newMessage(t, v)
	if err != nil {
		s.log.Warn("encoding dashboard message", "type", t, "err", err)
		return
	}
	s.Broadcast(msg)
}

// Broadcast queues msg for every client. It never blocks: when the queue is
// full the message is dropped.
func (s *Server) Broadcast(msg Message) {
	select {
	case <-s.ctx.Done():
	case s.broadcast <- msg:
	default:
		s.log.Warn("broadcast queue full, dropping message", "type", msg.Type)
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Warn("encoding dashboard message", "err", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				if err := s.write(conn, data); err != nil {
					s.log.Debug("dropping client", "err", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	// The snapshot goes out before the client is registered so it is always
	// the first message.
	welcome, err := newMessage(MessageTypeStatus, s.status.Snapshot())
	if err == nil {
		data, _ := json.Marshal(welcome)
		if err := s.write(conn, data); err != nil {
			_ = conn.Close(websocket.StatusInternalError, "welcome failed")
			return
		}
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	n := len(s.clients)
	s.clientsMu.Unlock()
	s.log.Debug("client connected", "clients", n)

	s.wg.Add(1)
	go s.readLoop(conn)
}

// readLoop only detects disconnects; clients never send anything meaningful.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.wg.Done()
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	_, ok := s.clients[conn]
	delete(s.clients, conn)
	n := len(s.clients)
	s.clientsMu.Unlock()
	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.log.Debug("client disconnected", "clients", n)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Status  string                `json:"status"`
		Clients int                   `json:"clients"`
		Sync    orchestrator.Snapshot `json:"sync"`
	}{"ok", s.ClientCount(), s.status.Snapshot()})
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
