package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeLink  = "link"
)

// NormalizeMessageType maps unknown kinds to text, matching the lenient client
// contract.
func NormalizeMessageType(t string) string {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeLink:
		return t
	default:
		return MessageTypeText
	}
}

// Message is append-only; only IsRead may change after creation.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversationId"`
	SenderID       string             `bson:"sender_id" json:"senderId"`
	Text           string             `bson:"text" json:"text"`
	MessageType    string             `bson:"message_type" json:"messageType"`
	MediaUrl       string             `bson:"media_url,omitempty" json:"mediaUrl,omitempty"`
	MediaPublicID  string             `bson:"media_public_id,omitempty" json:"mediaPublicId,omitempty"`
	LinkUrl        string             `bson:"link_url,omitempty" json:"linkUrl,omitempty"`
	IsRead         bool               `bson:"is_read" json:"isRead"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
}
