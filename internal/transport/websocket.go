// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"voicebox/internal/log"
)

// Hub implements Transport by broadcasting events as JSON to every
// connected WebSocket client. Unlike a standalone server, the hub
// exposes an http.HandlerFunc so the API router mounts it wherever it
// likes.
type Hub struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a Hub and starts its broadcast pump. When
// allowAnyOrigin is false the upgrader keeps gorilla's same-origin
// check.
func NewHub(allowAnyOrigin bool) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		done:      make(chan struct{}),
	}
	if allowAnyOrigin {
		h.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	go h.pump()
	return h
}

// Handler upgrades an HTTP request and registers the connection for
// broadcasts. Clients are write-only; the read loop exists to notice
// disconnects.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnf("websocket upgrade failed: %v", err)
			return
		}

		h.clientsMu.Lock()
		h.clients[conn] = true
		total := len(h.clients)
		h.clientsMu.Unlock()
		log.Debugf("websocket client connected, total: %d", total)

		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
			h.clientsMu.Lock()
			delete(h.clients, conn)
			h.clientsMu.Unlock()
			conn.Close()
		}()
	}
}

func (h *Hub) pump() {
	for {
		select {
		case data := <-h.broadcast:
			h.clientsMu.Lock()
			for client := range h.clients {
				if err := client.WriteJSON(data); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.clientsMu.Unlock()
		case <-h.done:
			return
		}
	}
}

// Send queues an event for broadcast. A full queue drops the event
// rather than stalling the caller.
func (h *Hub) Send(data any) error {
	select {
	case h.broadcast <- data:
	default:
	}
	return nil
}

// Close stops the pump and disconnects every client.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		h.clientsMu.Lock()
		for client := range h.clients {
			client.Close()
		}
		h.clients = make(map[*websocket.Conn]bool)
		h.clientsMu.Unlock()
	})
	return nil
}

var _ Transport = (*Hub)(nil)
