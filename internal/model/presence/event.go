package presence

// Inbound event names as they appear on the wire.
const (
	EventInstitutionConnected = "institutionConnected"
	EventUserConnected        = "userConnected"
	EventHelpAccepted         = "helpAccepted"
	EventClientDisconnected   = "clientDisconnected"
)

// Event is one of InstitutionConnected, UserConnected, HelpAccepted,
// Disconnected or ConnectionClosed.
type Event interface {
	isEvent()
}

// InstitutionConnected announces a help provider on the sending connection.
type InstitutionConnected struct {
	InstitutionID string `json:"institutionId"`
}

// UserConnected announces a help seeker addressing InstitutionID.
type UserConnected struct {
	UserID        string `json:"userId"`
	InstitutionID string `json:"institutionId"`
}

// HelpAccepted is sent by an institution taking over a user's request.
type HelpAccepted struct {
	UserID        string `json:"userId"`
	InstitutionID string `json:"institutionId"`
}

// Disconnected is the explicit sign-off of an actor.
type Disconnected struct {
	ClientID string `json:"clientId"`
}

// ConnectionClosed is raised by the transport when the underlying
// connection goes away without an explicit sign-off.
type ConnectionClosed struct{}

func (InstitutionConnected) isEvent() {}
func (UserConnected) isEvent()        {}
func (HelpAccepted) isEvent()         {}
func (Disconnected) isEvent()         {}
func (ConnectionClosed) isEvent()     {}

// Inbound pairs an event with the connection handle it arrived on.
type Inbound struct {
	TransportID string
	Event       Event
}
