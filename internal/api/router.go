package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sparques/rftrx"
	"github.com/sparques/rftrx/internal/bridge"
	"github.com/sparques/rftrx/internal/history"
)

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/{name}/send", s.handleSend)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleListHistory)
			r.Get("/{id}", s.handleGetHistory)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"version":           s.version,
		"devices":           len(s.bridge.Devices()),
		"websocket_clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.bridge.Devices()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading request body: "+err.Error())
		return
	}
	code, err := bridge.ParseSendPayload(body)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	err = s.bridge.Send(r.Context(), name, code)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "sent",
			"device": name,
			"code":   code,
		})
	case errors.Is(err, bridge.ErrUnknownDevice):
		writeNotFound(w, "device not found: "+name)
	case errors.Is(err, bridge.ErrWrongRole):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, rftrx.ErrCodeTooWide):
		writeBadRequest(w, err.Error())
	case errors.Is(err, bridge.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		s.logger.Error("send failed", "device", name, "error", err)
		writeInternalError(w, "send failed")
	}
}

// historyEvent is the wire form of a history.Event.
type historyEvent struct {
	ID            string    `json:"id"`
	Device        string    `json:"device"`
	Direction     string    `json:"direction"`
	Code          uint64    `json:"code"`
	BitLength     int       `json:"bit_length"`
	PulseLengthUS int64     `json:"pulse_length_us"`
	Protocol      int       `json:"protocol"`
	CreatedAt     time.Time `json:"created_at"`
}

func toHistoryEvent(e history.Event) historyEvent {
	return historyEvent{
		ID:            e.ID,
		Device:        e.Device,
		Direction:     e.Direction,
		Code:          e.Code,
		BitLength:     e.BitLength,
		PulseLengthUS: e.PulseMicros(),
		Protocol:      e.Protocol,
		CreatedAt:     e.CreatedAt,
	}
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history is disabled")
		return
	}

	q := r.URL.Query()
	f := history.Filter{
		Device:    q.Get("device"),
		Direction: q.Get("direction"),
	}
	if f.Direction != "" && f.Direction != history.Received && f.Direction != history.Sent {
		writeBadRequest(w, "direction must be rx or tx")
		return
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		f.Limit = limit
	}

	events, err := s.history.List(r.Context(), f)
	if err != nil {
		s.logger.Error("listing history failed", "error", err)
		writeInternalError(w, "failed to list history")
		return
	}
	out := make([]historyEvent, 0, len(events))
	for _, e := range events {
		out = append(out, toHistoryEvent(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": out,
		"count":  len(out),
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	e, err := s.history.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeNotFound(w, "event not found")
		return
	}
	if err != nil {
		s.logger.Error("getting history event failed", "id", id, "error", err)
		writeInternalError(w, "failed to get event")
		return
	}
	writeJSON(w, http.StatusOK, toHistoryEvent(e))
}
