package ws

import (
	"encoding/json"
	"time"

	"github.com/Harishreddyyarramada/novawrite-realtime/internal/models"
)

// Server -> client event names. These are the wire contract the web client
// listens on and must not change.
const (
	EventPresenceUpdate      = "presence:update"
	EventNewMessage          = "chat:new-message"
	EventConversationUpdated = "chat:conversation-updated"
	EventTyping              = "chat:typing"
	EventStopTyping          = "chat:stop-typing"
	EventReadersCount        = "post:readers-count"
)

// Client -> server command names.
const (
	CmdConversationJoin  = "conversation:join"
	CmdConversationLeave = "conversation:leave"
	CmdPostJoin          = "post:join"
	CmdPostLeave         = "post:leave"
	CmdTyping            = "chat:typing"
	CmdStopTyping        = "chat:stop-typing"
)

// Envelope frames every WS message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func UserRoom(userID string) string { return "user:" + userID }

func ConversationRoom(conversationID string) string { return "conversation:" + conversationID }

func PostRoom(postType, postID string) string { return "post:" + postType + ":" + postID }

type PresencePayload struct {
	UserID     string     `json:"userId"`
	Status     string     `json:"status"`
	LastSeenAt *time.Time `json:"lastSeenAt"`
}

type ConversationUpdatedPayload struct {
	ConversationID  string          `json:"conversationId"`
	LastMessage     *models.Message `json:"lastMessage"`
	LastMessageTime time.Time       `json:"lastMessageTime"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Username       string `json:"username,omitempty"`
}

type ReadersCountPayload struct {
	PostType string `json:"postType"`
	PostID   string `json:"postId"`
	Readers  int    `json:"readers"`
}

// ConversationRef is the payload of conversation join/leave commands.
type ConversationRef struct {
	ConversationID string `json:"conversationId"`
}

// PostRef is the payload of post join/leave commands.
type PostRef struct {
	PostType string `json:"postType"`
	PostID   string `json:"postId"`
}
