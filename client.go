/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// Client is one websocket connection. Its id doubles as the connection id
// players are bound to.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan outbound
}

func newUpgrader(cfg *Config) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return allowedOrigin(cfg, r)
		},
	}
}

// allowedOrigin accepts requests without an Origin header, from the
// configured client, or from this server's own host.
func allowedOrigin(cfg *Config, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if cfg.clientURL != "" && origin == cfg.clientURL {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	return u.Host == r.Host
}

func serveWS(cfg *Config, h *Hub, log *zap.SugaredLogger) httprouter.Handle {
	upgrader := newUpgrader(cfg)

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debugf("WS: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		c := &Client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan outbound, sendBuffer),
		}

		if !h.enqueue(register{client: c}) {
			_ = conn.Close()
			return
		}

		log.Debugf("WS: %s connected as %s", realIP(r), c.id)

		go c.writePump()
		go c.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.enqueue(unregister{client: c})
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			if err == nil {
				err = errMissingEvent
			}
			if !h.enqueue(malformed{client: c, err: err}) {
				return
			}
			continue
		}

		if !h.enqueue(inbound{client: c, env: env}) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
