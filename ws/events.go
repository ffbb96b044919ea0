package ws

import "encoding/json"

// Wire envelope. Clients send {"event": "...", "data": {...}} and receive
// the same shape back.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client -> server event names.
const (
	eventJoinRoom      = "join_room"
	eventMarkRead      = "mark_read"
	eventSendMessage   = "send_message"
	eventTyping        = "typing"
	eventStoppedTyping = "stopped_typing"
)

type joinRoomPayload struct {
	ConversationID uint `json:"conversationId"`
}

type markReadPayload struct {
	ConversationID uint `json:"conversationId"`
}

type sendMessagePayload struct {
	ConversationID uint   `json:"conversationId"`
	Content        string `json:"content"`
	Image          string `json:"image"`
	Video          string `json:"video"`
	ProductID      *uint  `json:"productId"`
}

type typingPayload struct {
	ConversationID uint   `json:"conversationId"`
	UserName       string `json:"userName"`
}

// Server -> client payloads. receive_message and message_deleted payloads
// come from the chat service.
type messagesReadPayload struct {
	ConversationID uint `json:"conversationId"`
	ReaderID       uint `json:"readerId"`
}

type userTypingPayload struct {
	UserID   uint   `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func encodeEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: event, Data: raw})
}
