// internal/wsrpc/server.go
package wsrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Loopback only; the listener binds 127.0.0.1
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes the app API over a loopback WebSocket for the
// browser-resident frontend. It also implements eventhub.Broadcaster.
type Server struct {
	authKey string
	router  *Router

	mu    sync.RWMutex
	conns map[string]*conn

	port int
	http *http.Server
}

// NewServer binds app's exported methods. The auth key, when set via
// CODEPAD_AUTH_KEY, is required on every connection.
func NewServer(app interface{}) *Server {
	return &Server{
		authKey: os.Getenv("CODEPAD_AUTH_KEY"),
		router:  NewRouter(app),
		conns:   make(map[string]*conn),
	}
}

// Start listens on an ephemeral loopback port and prints it for the
// launching process to read.
func (s *Server) Start(ctx context.Context) (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("listen: %w", err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.http = &http.Server{Handler: mux}

	go func() {
		if err := s.http.Serve(listener); err != http.ErrServerClosed {
			log.Printf("wsrpc server: %v", err)
		}
	}()

	fmt.Printf("WS_PORT:%d\n", s.port)
	return s.port, nil
}

// Stop closes every connection and shuts the listener down
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	for _, c := range s.conns {
		c.close()
	}
	s.mu.Unlock()

	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Port returns the bound port, 0 before Start
func (s *Server) Port() int {
	return s.port
}

// BroadcastEvent pushes an event to every connected frontend
func (s *Server) BroadcastEvent(eventType string, payload interface{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.conns {
		c.sendEvent(eventType, payload)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.authKey != "" && r.Header.Get("X-Auth-Key") != s.authKey {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsrpc upgrade: %v", err)
		return
	}

	c := newConn(uuid.NewString(), ws)
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()

	go c.writePump()
	s.readPump(c)
}

func (s *Server) readPump(c *conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, c.id)
		s.mu.Unlock()
		// Ends writePump; broadcasts can no longer reach this conn
		c.close()
		c.ws.Close()
	}()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("wsrpc read: %v", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("wsrpc: malformed envelope: %v", err)
			continue
		}
		if env.Kind == "call" && env.Call != nil {
			s.dispatch(c, env.Call)
		}
	}
}

func (s *Server) dispatch(c *conn, call *Call) {
	result, err := s.router.Call(call.Method, call.Params)

	var errMsg string
	if err != nil {
		errMsg = err.Error()
	}
	if err := c.sendReply(call.ID, result, errMsg); err != nil {
		log.Printf("wsrpc reply: %v", err)
	}
}
