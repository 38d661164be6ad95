package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"subtide/internal/logging"
	"subtide/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The progress stream carries no secrets and browsers connect from
	// arbitrary dev origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// wsClient adapts one websocket connection to the hub's Sender interface.
// Writes are serialized because broadcasts and heartbeats can race.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Send(event notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(event)
}

func (c *wsClient) Close() error {
	return c.conn.Close()
}

func (h *handlers) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}

	client := &wsClient{conn: conn}
	h.hub.Add(client)

	// Read loop: drain client frames until the connection drops. Client
	// heartbeats are echoed so either side can probe liveness.
	go func() {
		defer func() {
			h.hub.Remove(client)
			_ = client.Close()
		}()
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(payload, &msg) == nil && msg.Type == notify.TypeHeartbeat {
				if err := client.Send(notify.HeartbeatEvent()); err != nil {
					return
				}
			}
		}
	}()
}
