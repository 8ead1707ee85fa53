package presence

import (
	"log"
	"time"

	"github.com/safeping/relay/backend/internal/model/presence"
)

// Notifier delivers outbound messages. Delivery is best effort: a send to a
// handle that is gone is dropped by the implementation.
type Notifier interface {
	Send(transportID string, msg presence.Message)
	Broadcast(msg presence.Message)
}

// RouterConfig tunes the router.
type RouterConfig struct {
	// EvictOnClose removes sessions still bound to a connection when that
	// connection closes without an explicit clientDisconnected.
	EvictOnClose bool
	// Now stamps outbound notifications. Defaults to time.Now in UTC.
	Now func() time.Time
}

// Router turns inbound presence events into registry updates and
// notifications. Handle must be called from a single goroutine (see Loop).
type Router struct {
	registry *Registry
	notifier Notifier
	cfg      RouterConfig
}

// NewRouter binds a router to its registry and notifier.
func NewRouter(registry *Registry, notifier Notifier, cfg RouterConfig) *Router {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Router{registry: registry, notifier: notifier, cfg: cfg}
}

// Registry exposes the registry the router updates.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Handle processes one event to completion.
func (r *Router) Handle(in presence.Inbound) {
	switch ev := in.Event.(type) {
	case presence.InstitutionConnected:
		r.registry.Register(ev.InstitutionID, in.TransportID, "")
		log.Printf("[presence] institution %s connected on %s", ev.InstitutionID, in.TransportID)

	case presence.UserConnected:
		r.registry.Register(ev.UserID, in.TransportID, ev.InstitutionID)
		log.Printf("[presence] user %s connected on %s addressing %s", ev.UserID, in.TransportID, ev.InstitutionID)

		helper, ok := r.registry.Lookup(ev.InstitutionID)
		if !ok {
			log.Printf("[presence] institution %s offline, help request from %s dropped", ev.InstitutionID, ev.UserID)
			return
		}
		r.notifier.Send(helper.TransportID, presence.HelpRequest(ev.UserID, r.cfg.Now()))

	case presence.HelpAccepted:
		user, ok := r.registry.Lookup(ev.UserID)
		if !ok {
			log.Printf("[presence] user %s offline, acceptance from %s dropped", ev.UserID, ev.InstitutionID)
			return
		}
		r.notifier.Send(user.TransportID, presence.HelpAcceptedBy(ev.InstitutionID, r.cfg.Now()))

	case presence.Disconnected:
		r.disconnect(ev.ClientID)

	case presence.ConnectionClosed:
		actors := r.registry.BoundTo(in.TransportID)
		if len(actors) == 0 {
			return
		}
		if !r.cfg.EvictOnClose {
			log.Printf("[presence] connection %s closed, retaining %d stale session(s) %v", in.TransportID, len(actors), actors)
			return
		}
		for _, actorID := range actors {
			r.disconnect(actorID)
		}

	default:
		log.Printf("[presence] ignoring unknown event %T from %s", in.Event, in.TransportID)
	}
}

func (r *Router) disconnect(actorID string) {
	removed := r.registry.Remove(actorID)
	log.Printf("[presence] %s went offline (registered=%t)", actorID, removed)
	r.notifier.Broadcast(presence.UserOffline(actorID))
}
