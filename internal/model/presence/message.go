package presence

import "time"

// Outbound event names.
const (
	MessageHelpRequest  = "helpRequest"
	MessageHelpAccepted = "helpAccepted"
	MessageUserOffline  = "userOffline"
	MessageError        = "error"
)

// Message is a named outbound notification.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// HelpRequestPayload is pushed to an institution when a user connects to it.
type HelpRequestPayload struct {
	UserID string    `json:"userId"`
	Time   time.Time `json:"time"`
}

// HelpAcceptedPayload is pushed to a user when an institution accepts.
type HelpAcceptedPayload struct {
	InstitutionID string    `json:"institutionId"`
	Time          time.Time `json:"time"`
}

// UserOfflinePayload is broadcast when an actor goes offline.
type UserOfflinePayload struct {
	ClientID string `json:"clientId"`
}

// ErrorPayload reports a rejected inbound frame back to its sender.
type ErrorPayload struct {
	Message string `json:"message"`
}

// HelpRequest builds the helpRequest notification.
func HelpRequest(userID string, at time.Time) Message {
	return Message{Event: MessageHelpRequest, Data: HelpRequestPayload{UserID: userID, Time: at}}
}

// HelpAcceptedBy builds the helpAccepted notification.
func HelpAcceptedBy(institutionID string, at time.Time) Message {
	return Message{Event: MessageHelpAccepted, Data: HelpAcceptedPayload{InstitutionID: institutionID, Time: at}}
}

// UserOffline builds the userOffline broadcast.
func UserOffline(clientID string) Message {
	return Message{Event: MessageUserOffline, Data: UserOfflinePayload{ClientID: clientID}}
}

// Error builds an error frame.
func Error(message string) Message {
	return Message{Event: MessageError, Data: ErrorPayload{Message: message}}
}
