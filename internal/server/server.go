package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/gorilla/websocket"

	"memslink/internal/ecu"
	"memslink/internal/logger"
)

// Server polls the ECU and broadcasts telemetry to WebSocket clients.
type Server struct {
	cfg   *Config
	conn  *ecu.Connection
	webFS fs.FS

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader

	identMu sync.Mutex
	ident   []byte // device identification from the link handshake
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Frame is the JSON structure sent to all WebSocket clients. Ident and
// Generation are only set on the hello frame.
type Frame struct {
	Telemetry  *ecu.Telemetry `json:"telemetry,omitempty"`
	Ident      string         `json:"ident,omitempty"`
	Generation string         `json:"generation,omitempty"`
	Error      string         `json:"error,omitempty"`
	Stamp      int64          `json:"stamp"` // Unix ms
}

// New creates a Server around an open (but not yet initialized) ECU
// connection.
func New(cfg *Config, conn *ecu.Connection, webFS fs.FS) *Server {
	return &Server{
		cfg:     cfg,
		conn:    conn,
		webFS:   webFS,
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run initializes the ECU link and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	// The ECU only listens once the ignition is on, so give the handshake a
	// few tries before giving up.
	err := retry.Do(
		func() error {
			ident, err := s.conn.InitLink()
			if err != nil {
				return err
			}
			s.identMu.Lock()
			s.ident = ident
			s.identMu.Unlock()
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().Uint("attempt", n+1).Err(err).Msg("ecu handshake failed, retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("ecu handshake: %w", err)
	}
	logger.Info().Str("ident", fmt.Sprintf("% X", s.currentIdent())).Msg("ecu link up")

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(s.webFS)))
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)

	go s.pollLoop(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	logger.Info().Str("addr", s.cfg.Server.ListenAddr).Msg("dashboard listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) currentIdent() []byte {
	s.identMu.Lock()
	defer s.identMu.Unlock()
	return s.ident
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	total := len(s.clients)
	s.clientsMu.Unlock()

	logger.Info().Int("clients", total).Msg("websocket client connected")

	// Send the device identification right away
	hello := Frame{
		Ident:      fmt.Sprintf("% X", s.currentIdent()),
		Generation: s.conn.Generation().String(),
		Stamp:      time.Now().UnixMilli(),
	}
	if data, err := json.Marshal(hello); err == nil {
		client.send <- data
	}

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (keep-alive; incoming messages are discarded)
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			total := len(s.clients)
			s.clientsMu.Unlock()
			close(client.send)
			logger.Info().Int("clients", total).Msg("websocket client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := struct {
		Connected  bool   `json:"connected"`
		Generation string `json:"generation"`
		Ident      string `json:"ident"`
	}{
		Connected:  s.conn.IsConnected(),
		Generation: s.conn.Generation().String(),
		Ident:      fmt.Sprintf("% X", s.currentIdent()),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// pollLoop reads telemetry at the configured rate and broadcasts each
// snapshot. A failed read is reported to clients but does not stop the
// loop; the next tick tries again.
func (s *Server) pollLoop(ctx context.Context) {
	hz := s.cfg.ECU.PollHz
	if hz <= 0 {
		hz = 4
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := Frame{Stamp: time.Now().UnixMilli()}
			snap, err := s.conn.Read()
			if err != nil {
				logger.Debug().Err(err).Msg("telemetry read failed")
				frame.Error = err.Error()
			} else {
				frame.Telemetry = snap
			}
			s.broadcast(frame)
		}
	}
}

func (s *Server) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client too slow, skip
		}
	}
}
