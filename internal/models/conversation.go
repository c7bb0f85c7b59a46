package models

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is a strictly two-party messaging relationship. PairKey is the
// sorted participant pair and carries a unique index so concurrent creation
// for the same pair converges on one document.
type Conversation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Participants    []string           `bson:"participants" json:"participants"`
	PairKey         string             `bson:"pair_key" json:"-"`
	LastMessageID   primitive.ObjectID `bson:"last_message_id,omitempty" json:"-"`
	LastMessageTime time.Time          `bson:"last_message_time" json:"lastMessageTime"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updatedAt"`
}

func PairKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the peer of userID, or "" when userID is not a
// participant.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
