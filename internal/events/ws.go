package events

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced at the HTTP layer; the socket trusts it.
		return true
	},
}

// wsClient wraps a websocket and coordinates outbound writes via a buffered
// channel so bus delivery never blocks on a slow client.
type wsClient struct {
	ws    *websocket.Conn
	send  chan []byte
	once  sync.Once
	close chan struct{}
}

func newWSClient(ws *websocket.Conn) *wsClient {
	return &wsClient{
		ws:    ws,
		send:  make(chan []byte, 128),
		close: make(chan struct{}),
	}
}

func (c *wsClient) enqueue(payload []byte) bool {
	select {
	case <-c.close:
		return false
	case c.send <- payload:
		return true
	default:
		// slow client: drop the connection to keep backpressure bounded
		c.shutdown(websocket.CloseGoingAway, "send buffer full")
		return false
	}
}

func (c *wsClient) shutdown(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case msg := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request and streams the conversation's bus events to
// the client as JSON frames until either side closes. The subscription is
// leased for the socket's lifetime and released on disconnect.
func ServeWS(bus *Bus, w http.ResponseWriter, r *http.Request, conversationID string) error {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := newWSClient(ws)
	go client.writeLoop()

	ch, cancel := bus.Subscribe(conversationID, 64)
	go func() {
		defer cancel()
		for ev := range ch {
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Printf("ws: marshal event: %v", err)
				continue
			}
			if !client.enqueue(payload) {
				return
			}
		}
	}()

	// Read loop exists only to observe the close handshake; clients do not
	// send application frames.
	go func() {
		defer cancel()
		defer client.shutdown(websocket.CloseNormalClosure, "bye")
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}
