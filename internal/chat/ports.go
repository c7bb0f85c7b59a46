package chat

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Harishreddyyarramada/novawrite-realtime/internal/models"
)

// ConversationStore is the persistence port for conversations. GetOrCreate
// must converge under concurrent calls for the same pair: implementations
// rely on a unique index on the pair key and treat a duplicate-key insert as
// "someone else won", then re-fetch.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, userA, userB string) (*models.Conversation, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	SetLastMessage(ctx context.Context, convID, msgID primitive.ObjectID, at time.Time) error
	Delete(ctx context.Context, convID primitive.ObjectID) error
}

// MessageStore is the persistence port for messages.
type MessageStore interface {
	Insert(ctx context.Context, m *models.Message) (*models.Message, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	ListByConversation(ctx context.Context, convID primitive.ObjectID) ([]*models.Message, error)
	MarkRead(ctx context.Context, convID primitive.ObjectID, readerID string) (int64, error)
	DeleteByConversation(ctx context.Context, convID primitive.ObjectID) error
}

// UserStore is the read side of the external account service.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetManyByIDs(ctx context.Context, userIDs []string) ([]*models.User, error)
}

// PresenceView is a read-only view of the connection registry.
type PresenceView interface {
	IsOnline(userID string) bool
	OnlineUserIDs() map[string]struct{}
}

// Notifier receives fan-out duty after a message is durably stored.
type Notifier interface {
	MessageCreated(conv *models.Conversation, msg *models.Message)
}

// EventPublisher feeds downstream consumers (digests, notifications).
// Publishing is best-effort and never fails the send path.
type EventPublisher interface {
	PublishMessageSent(ctx context.Context, payload any) error
}
