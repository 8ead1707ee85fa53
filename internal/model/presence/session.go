package presence

import "time"

// Session binds an online actor to the connection it announced itself on.
type Session struct {
	ActorID       string    `json:"actorId"`
	TransportID   string    `json:"transportId"`
	CounterpartID string    `json:"counterpartId,omitempty"`
	ConnectedAt   time.Time `json:"connectedAt"`
}

// HasCounterpart reports whether the actor is addressing someone.
func (s Session) HasCounterpart() bool {
	return s.CounterpartID != ""
}
