// Package wire defines the relay's event vocabulary and the codec between
// typed events and the google.protobuf.Struct frames carried on the stream.
//
// Every frame is an object {"event": <name>, "data": <payload>}. Payload field
// names follow the JSON shapes clients already speak.
package wire

import "github.com/dmitrijs2005/cipherrelay/internal/server/models"

// Inbound events.
const (
	EventRegister      = "register"
	EventGetPublicKeys = "get_public_keys"
	EventSendMessage   = "send_message"
)

// Outbound events.
const (
	EventRegisterResponse = "register_response"
	EventUserList         = "user_list"
	EventPublicKeys       = "public_keys"
	EventReceiveMessage   = "receive_message"
	EventMessageSent      = "message_sent"
	EventError            = "error"
)

// Outbound is one event queued for a session.
type Outbound struct {
	Event   string
	Payload any
}

type RegisterRequest struct {
	Username  string `json:"username"`
	PublicKey string `json:"public_key"`
}

type RegisterResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

type UserList struct {
	Users []string `json:"users"`
}

// Message is the send_message / receive_message payload. Only To and From
// are read; the rest pass through as raw JSON of any shape.
type Message struct {
	To               string      `json:"to"`
	From             string      `json:"from"`
	EncryptedMessage models.Blob `json:"encrypted_message"`
	EncryptedKeys    models.Blob `json:"encrypted_keys"`
	IV               models.Blob `json:"iv"`
	Timestamp        models.Blob `json:"timestamp,omitempty"`
}

type MessageSent struct {
	Success bool   `json:"success"`
	To      string `json:"to"`
	Error   string `json:"error,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func (m Message) Envelope() models.Envelope {
	return models.Envelope{
		To:               m.To,
		From:             m.From,
		EncryptedMessage: m.EncryptedMessage,
		EncryptedKeys:    m.EncryptedKeys,
		IV:               m.IV,
		Timestamp:        m.Timestamp,
	}
}

func MessageFromEnvelope(env models.Envelope) Message {
	return Message{
		To:               env.To,
		From:             env.From,
		EncryptedMessage: env.EncryptedMessage,
		EncryptedKeys:    env.EncryptedKeys,
		IV:               env.IV,
		Timestamp:        env.Timestamp,
	}
}

func RegisterOK(username string) Outbound {
	return Outbound{Event: EventRegisterResponse, Payload: RegisterResponse{Success: true, Username: username}}
}

func RegisterFailed(reason string) Outbound {
	return Outbound{Event: EventRegisterResponse, Payload: RegisterResponse{Success: false, Error: reason}}
}

func Users(usernames []string) Outbound {
	if usernames == nil {
		usernames = []string{}
	}
	return Outbound{Event: EventUserList, Payload: UserList{Users: usernames}}
}

func PublicKeys(keys map[string]string) Outbound {
	if keys == nil {
		keys = map[string]string{}
	}
	return Outbound{Event: EventPublicKeys, Payload: keys}
}

func ReceiveMessage(env models.Envelope) Outbound {
	return Outbound{Event: EventReceiveMessage, Payload: MessageFromEnvelope(env)}
}

func MessageSentOK(to string) Outbound {
	return Outbound{Event: EventMessageSent, Payload: MessageSent{Success: true, To: to}}
}

func MessageSentFailed(to, reason string) Outbound {
	return Outbound{Event: EventMessageSent, Payload: MessageSent{Success: false, To: to, Error: reason}}
}

func Error(reason string) Outbound {
	return Outbound{Event: EventError, Payload: ErrorPayload{Error: reason}}
}
