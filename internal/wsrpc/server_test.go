package wsrpc

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startServer(t *testing.T, app interface{}) *Server {
	t.Helper()
	s := NewServer(app)
	port, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if port == 0 {
		t.Fatal("Start() returned port 0")
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func dial(t *testing.T, s *Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://127.0.0.1:%d/ws", s.Port())
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestCallRoundTrip(t *testing.T) {
	s := startServer(t, &demoApp{})
	ws := dial(t, s, nil)

	env := Envelope{
		Kind: "call",
		Call: &Call{ID: "1", Method: "Add", Params: []interface{}{2, 3}},
	}
	if err := ws.WriteJSON(env); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var reply Envelope
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := ws.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if reply.Kind != "reply" || reply.Reply == nil {
		t.Fatalf("reply envelope = %+v", reply)
	}
	if reply.Reply.ID != "1" || reply.Reply.Error != "" {
		t.Errorf("reply = %+v", reply.Reply)
	}
	// JSON round trip turns ints into float64
	if got, ok := reply.Reply.Result.(float64); !ok || got != 5 {
		t.Errorf("result = %v, want 5", reply.Reply.Result)
	}
}

func TestCallErrorReply(t *testing.T) {
	s := startServer(t, &demoApp{})
	ws := dial(t, s, nil)

	env := Envelope{
		Kind: "call",
		Call: &Call{ID: "2", Method: "Fail", Params: nil},
	}
	if err := ws.WriteJSON(env); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var reply Envelope
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := ws.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if reply.Reply == nil || reply.Reply.Error != "boom" {
		t.Errorf("reply = %+v, want error boom", reply.Reply)
	}
}

func TestBroadcastEvent(t *testing.T) {
	s := startServer(t, &demoApp{})
	ws := dial(t, s, nil)

	// Connection registration races the dial; give the server a beat
	time.Sleep(50 * time.Millisecond)
	s.BroadcastEvent("tree:changed", map[string]string{"path": "src"})

	var env Envelope
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := ws.ReadJSON(&env); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if env.Kind != "event" || env.Event == nil || env.Event.Type != "tree:changed" {
		t.Errorf("event envelope = %+v", env)
	}
}

func TestDisconnectReleasesConn(t *testing.T) {
	s := startServer(t, &demoApp{})
	ws := dial(t, s, nil)

	time.Sleep(50 * time.Millisecond)

	s.mu.RLock()
	if len(s.conns) != 1 {
		s.mu.RUnlock()
		t.Fatalf("conns = %d, want 1 before disconnect", len(s.conns))
	}
	var c *conn
	for _, registered := range s.conns {
		c = registered
	}
	s.mu.RUnlock()

	ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.RLock()
		remaining := len(s.conns)
		s.mu.RUnlock()
		if remaining == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("conns = %d after disconnect, want 0", remaining)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The send channel must be closed so writePump exits too
	select {
	case _, open := <-c.send:
		if open {
			t.Error("send channel still open after disconnect")
		}
	case <-time.After(2 * time.Second):
		t.Error("send channel never closed; writePump would leak")
	}
}

func TestAuthKeyRequired(t *testing.T) {
	t.Setenv("CODEPAD_AUTH_KEY", "secret")
	s := startServer(t, &demoApp{})

	url := fmt.Sprintf("ws://127.0.0.1:%d/ws", s.Port())
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("dial without auth key should be rejected")
	}

	header := http.Header{"X-Auth-Key": []string{"secret"}}
	ws := dial(t, s, header)
	ws.Close()
}

func TestHealthEndpoint(t *testing.T) {
	s := startServer(t, &demoApp{})

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", s.Port()))
	if err != nil {
		t.Fatalf("health request error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}
