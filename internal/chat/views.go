package chat

import (
	"time"

	"github.com/Harishreddyyarramada/novawrite-realtime/internal/models"
)

// ParticipantView is a conversation participant enriched with live presence
// for the conversation list UI.
type ParticipantView struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	ProfileImage string     `json:"profileImage,omitempty"`
	IsOnline     bool       `json:"isOnline"`
	LastSeenAt   *time.Time `json:"lastSeenAt"`
}

type ConversationView struct {
	ID              string            `json:"id"`
	Participants    []ParticipantView `json:"participants"`
	OtherUser       *ParticipantView  `json:"otherUser"`
	LastMessage     *models.Message   `json:"lastMessage"`
	LastMessageTime time.Time         `json:"lastMessageTime"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func participantView(u *models.User, online bool) ParticipantView {
	return ParticipantView{
		ID:           u.ID.Hex(),
		Username:     u.Username,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		IsOnline:     online,
		LastSeenAt:   u.LastActiveAt(),
	}
}
