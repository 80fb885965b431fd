// internal/wsrpc/client.go
package wsrpc

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var errBufferFull = errors.New("client send buffer full")

// conn is one connected browser. Writes go through a buffered channel
// drained by writePump so event broadcast never blocks on a slow peer.
type conn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	once sync.Once
}

func newConn(id string, ws *websocket.Conn) *conn {
	return &conn{
		id:   id,
		ws:   ws,
		send: make(chan []byte, 256),
	}
}

func (c *conn) sendEnvelope(env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errBufferFull
	}
}

func (c *conn) sendReply(id string, result interface{}, errMsg string) error {
	reply := &Reply{ID: id}
	if errMsg != "" {
		reply.Error = errMsg
	} else {
		reply.Result = result
	}
	return c.sendEnvelope(&Envelope{Kind: "reply", Reply: reply})
}

func (c *conn) sendEvent(eventType string, payload interface{}) error {
	return c.sendEnvelope(&Envelope{
		Kind:  "event",
		Event: &Event{Type: eventType, Payload: payload},
	})
}

func (c *conn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *conn) close() {
	c.once.Do(func() { close(c.send) })
}
