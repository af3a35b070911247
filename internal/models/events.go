package models

import "encoding/json"

// Inbound event names (client -> server).
const (
	EventSendDirectMessage = "sendDirectMessage"
	EventSendGroupMessage  = "sendGroupMessage"
	EventDirectMessageRead = "directMessageRead"
	EventJoinGroup         = "joinGroup"
)

// Outbound event names (server -> client). Read receipts are relayed under
// their inbound name.
const (
	EventNewDirectMessage = "newDirectMessage"
	EventNewGroupMessage  = "newGroupMessage"
)

// Envelope is the wire frame for every event in both directions. Data stays
// a RawMessage so routed payloads are re-emitted verbatim, extra fields
// included.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DirectMessagePayload carries a one-to-one chat message. Only the routing
// keys are decoded; the raw frame is what recipients receive.
type DirectMessagePayload struct {
	SenderID       string `json:"senderId"`
	RecipientID    string `json:"recipientId"`
	MessageContent string `json:"messageContent"`
}

type GroupMessagePayload struct {
	GroupChatID    string `json:"groupChatId"`
	MessageContent string `json:"messageContent"`
}

type ReadReceiptPayload struct {
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
	ReaderID  string `json:"readerId"`
}

type JoinGroupPayload struct {
	GroupChatID string `json:"groupChatId"`
}
