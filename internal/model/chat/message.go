package chat

// Frame types exchanged over the room websocket.
const (
	TypeMessage     = "message"
	TypeChatMessage = "chat_message"
	TypeError       = "error"
)

// OutboundMessage is what a participant writes to the room socket.
// Agent carries the staff identifier and stays off the wire for visitors.
type OutboundMessage struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Agent   string `json:"agent,omitempty"`
}

// NewOutboundMessage builds a "message" frame for the given sender.
func NewOutboundMessage(name, text string) OutboundMessage {
	return OutboundMessage{Type: TypeMessage, Name: name, Message: text}
}

// ChatMessage is the broadcast frame rendered into the chat log.
type ChatMessage struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	Agent     bool   `json:"agent"`
	Initials  string `json:"initials"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// ErrorMessage reports a rejected inbound frame back to the sender.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
