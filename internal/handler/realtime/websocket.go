package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/safeping/relay/backend/internal/model/presence"
	realtimesvc "github.com/safeping/relay/backend/internal/service/realtime"
	"github.com/safeping/relay/backend/pkg/utils"
)

// EventSubmitter accepts decoded inbound events for routing.
type EventSubmitter interface {
	Submit(ctx context.Context, in presence.Inbound) error
}

// SessionLister exposes the current presence snapshot.
type SessionLister interface {
	Snapshot() []presence.Session
}

const closeSubmitTimeout = 5 * time.Second

// Handler upgrades presence connections and feeds their frames to the
// event loop.
type Handler struct {
	conns    *realtimesvc.ConnectionManager
	events   EventSubmitter
	sessions SessionLister
	upgrader websocket.Upgrader
}

// New creates the realtime handler. allowedOrigins limits browser origins;
// requests without an Origin header are always accepted.
func New(conns *realtimesvc.ConnectionManager, events EventSubmitter, sessions SessionLister, allowedOrigins []string) *Handler {
	return &Handler{
		conns:    conns,
		events:   events,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the socket and the presence snapshot.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
	r.Get("/presence", h.handlePresence)
}

func (h *Handler) handlePresence(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.sessions.Snapshot())
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}

	id := h.conns.Add(conn)
	defer h.closeConnection(id)

	pongWait := h.conns.Options().PongWait
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error on %s: %v", id, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame presence.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.conns.Send(id, presence.Error("invalid frame"))
			continue
		}

		event, err := frame.Decode()
		if err != nil {
			h.conns.Send(id, presence.Error(err.Error()))
			continue
		}

		if err := h.events.Submit(r.Context(), presence.Inbound{TransportID: id, Event: event}); err != nil {
			log.Printf("[websocket] dispatch %s from %s failed: %v", frame.Event, id, err)
			return
		}
	}
}

func (h *Handler) closeConnection(id string) {
	h.conns.Remove(id)

	ctx, cancel := context.WithTimeout(context.Background(), closeSubmitTimeout)
	defer cancel()
	if err := h.events.Submit(ctx, presence.Inbound{TransportID: id, Event: presence.ConnectionClosed{}}); err != nil {
		log.Printf("[websocket] report close of %s failed: %v", id, err)
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
