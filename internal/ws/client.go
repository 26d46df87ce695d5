package ws

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/cantina-pos/api/internal/auth"
	"github.com/cantina-pos/api/internal/enum"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 512
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // authenticated by the token query param
	},
}

// Client is one kitchen screen connection.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	cafeteriaID int32
	send        chan []byte
}

// subscribeError carries the HTTP status a refused handshake answers with.
type subscribeError struct {
	status int
	msg    string
}

func (e *subscribeError) Error() string { return e.msg }

// subscription checks the token and cafeteria of an upgrade request. Only
// staff and admins may watch a cafeteria's reservations.
func subscription(r *http.Request, jwtSecret string) (int32, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return 0, &subscribeError{http.StatusUnauthorized, "missing token"}
	}

	claims, err := auth.ValidateToken(jwtSecret, token)
	if err != nil || claims.UserID <= 0 {
		return 0, &subscribeError{http.StatusUnauthorized, "invalid token"}
	}

	cid, err := strconv.ParseInt(chi.URLParam(r, "cid"), 10, 32)
	if err != nil || cid <= 0 {
		return 0, &subscribeError{http.StatusBadRequest, "invalid cafeteria id"}
	}

	switch claims.Role {
	case enum.UserRoleStaff, enum.UserRoleAdmin:
		return int32(cid), nil
	default:
		return 0, &subscribeError{http.StatusForbidden, "staff only"}
	}
}

// ServeWS subscribes a kitchen screen to a cafeteria's reservations.
// Endpoint: WS /ws/cafeterias/{cid}/reservations?token=JWT
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	cafeteriaID, err := subscription(r, jwtSecret)
	if err != nil {
		var se *subscribeError
		if errors.As(err, &se) {
			http.Error(w, se.msg, se.status)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade")
		return
	}

	client := &Client{
		hub:         hub,
		conn:        conn,
		cafeteriaID: cafeteriaID,
		send:        make(chan []byte, sendBuffer),
	}
	hub.register <- client

	log.WithField("cafeteria_id", cafeteriaID).Debug("kitchen screen connected")

	go client.writeLoop()
	go client.readLoop()
}

// readLoop only watches for disconnects and pongs; screens never send data.
func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("cafeteria_id", c.cafeteriaID).Warn("websocket read")
			}
			return
		}
	}
}

// writeLoop sends one JSON frame per hub message and keeps the connection
// alive with pings. It exits when the hub closes send.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
