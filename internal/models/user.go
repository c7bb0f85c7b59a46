package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is owned by the account service; the realtime core only reads it and
// writes last_seen_at on disconnect.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	ProfileImage string             `bson:"profile_URL,omitempty" json:"profileImage,omitempty"`
	LastLoginAt  *time.Time         `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
	LastSeenAt   *time.Time         `bson:"lastSeenAt,omitempty" json:"lastSeenAt,omitempty"`
}

// LastActiveAt falls back to the login timestamp when last_seen was never
// recorded for the account.
func (u *User) LastActiveAt() *time.Time {
	if u.LastSeenAt != nil {
		return u.LastSeenAt
	}
	return u.LastLoginAt
}
