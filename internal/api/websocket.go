package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sparques/rftrx/internal/bridge"
	"github.com/sparques/rftrx/internal/logging"
)

// Live feed message types. Clients send filter and ping; the server sends
// everything else.
const (
	WSTypeFilter = "filter"
	WSTypePing   = "ping"
	WSTypePong   = "pong"
	WSTypeCode   = "code"
	WSTypeError  = "error"
)

const (
	feedBuffer     = 256
	feedMaxMessage = 4096
	feedPing       = 30 * time.Second
	feedWriteWait  = 10 * time.Second
)

// WSMessage is the single frame shape of the live code feed.
//
// A filter message narrows the feed to the listed event types and device
// names; an empty list matches everything. The server echoes the filter it
// applied with the same ID.
type WSMessage struct {
	Type    string        `json:"type"`
	ID      string        `json:"id,omitempty"`
	Event   string        `json:"event,omitempty"`
	At      string        `json:"at,omitempty"`
	Code    *bridge.Event `json:"code,omitempty"`
	Events  []string      `json:"events,omitempty"`
	Devices []string      `json:"devices,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Hub fans bridge events out to websocket clients.
type Hub struct {
	logger *logging.Logger

	mu    sync.RWMutex
	feeds map[*feed]struct{}
}

type feed struct {
	conn *websocket.Conn
	out  chan []byte

	mu      sync.RWMutex
	events  []string
	devices []string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewHub returns an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{logger: logger, feeds: make(map[*feed]struct{})}
}

// Run blocks until ctx is cancelled, then hangs up on every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for f := range h.feeds {
		delete(h.feeds, f)
		close(f.out)
		f.conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.feeds)
}

// Broadcast sends a bridge event to every client whose filter admits it.
// Payloads other than bridge.Event are dropped. A client whose buffer is
// full misses the event.
func (h *Hub) Broadcast(eventType string, payload any) {
	e, ok := payload.(bridge.Event)
	if !ok {
		h.logger.Warn("dropping unknown live event", "event", eventType)
		return
	}
	data, err := json.Marshal(WSMessage{
		Type:  WSTypeCode,
		Event: eventType,
		At:    time.Now().UTC().Format(time.RFC3339),
		Code:  &e,
	})
	if err != nil {
		h.logger.Error("encoding live event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for f := range h.feeds {
		if !f.admits(eventType, e.Device) {
			continue
		}
		select {
		case f.out <- data:
		default:
		}
	}
}

func (h *Hub) add(f *feed) {
	h.mu.Lock()
	h.feeds[f] = struct{}{}
	n := len(h.feeds)
	h.mu.Unlock()
	h.logger.Debug("live feed opened", "clients", n)
}

// remove closes f.out unless Run already did.
func (h *Hub) remove(f *feed) {
	h.mu.Lock()
	_, ok := h.feeds[f]
	if ok {
		delete(h.feeds, f)
		close(f.out)
	}
	n := len(h.feeds)
	h.mu.Unlock()
	h.logger.Debug("live feed closed", "clients", n)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	f := &feed{conn: conn, out: make(chan []byte, feedBuffer)}
	s.hub.add(f)
	go f.write()
	f.read(s.hub)
}

func (f *feed) admits(eventType, device string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return (len(f.events) == 0 || slices.Contains(f.events, eventType)) &&
		(len(f.devices) == 0 || slices.Contains(f.devices, device))
}

// read handles client messages until the connection drops. Replies go
// through out like events, so write stays the only writer.
func (f *feed) read(h *Hub) {
	defer func() {
		h.remove(f)
		f.conn.Close()
	}()

	f.conn.SetReadLimit(feedMaxMessage)
	extend := func(string) error {
		return f.conn.SetReadDeadline(time.Now().Add(feedPing + feedWriteWait))
	}
	extend("") //nolint:errcheck
	f.conn.SetPongHandler(extend)

	for {
		var msg WSMessage
		if err := f.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("live feed read failed", "error", err)
			}
			return
		}
		extend("") //nolint:errcheck

		reply := WSMessage{Type: WSTypeError, ID: msg.ID}
		switch msg.Type {
		case WSTypeFilter:
			f.mu.Lock()
			f.events, f.devices = msg.Events, msg.Devices
			f.mu.Unlock()
			reply = WSMessage{Type: WSTypeFilter, ID: msg.ID, Events: msg.Events, Devices: msg.Devices}
		case WSTypePing:
			reply.Type = WSTypePong
		default:
			reply.Error = "unknown message type " + msg.Type
		}
		f.reply(reply)
	}
}

func (f *feed) reply(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	defer func() {
		recover() //nolint:errcheck // out closed by Run
	}()
	select {
	case f.out <- data:
	default:
	}
}

func (f *feed) write() {
	ping := time.NewTicker(feedPing)
	defer func() {
		ping.Stop()
		f.conn.Close()
	}()

	for {
		var err error
		select {
		case data, ok := <-f.out:
			f.conn.SetWriteDeadline(time.Now().Add(feedWriteWait)) //nolint:errcheck
			if !ok {
				f.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			err = f.conn.WriteMessage(websocket.TextMessage, data)
		case <-ping.C:
			f.conn.SetWriteDeadline(time.Now().Add(feedWriteWait)) //nolint:errcheck
			err = f.conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}
