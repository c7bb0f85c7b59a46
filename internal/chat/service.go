package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Harishreddyyarramada/novawrite-realtime/internal/metrics"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/models"
)

// Service enforces the conversation and message invariants. All callers,
// HTTP or otherwise, go through here; nothing else touches the stores.
type Service struct {
	convs    ConversationStore
	msgs     MessageStore
	users    UserStore
	presence PresenceView
	notifier Notifier
	events   EventPublisher
	maxText  int
	log      *zap.SugaredLogger
}

func NewService(convs ConversationStore, msgs MessageStore, users UserStore, presence PresenceView, notifier Notifier, events EventPublisher, maxText int, log *zap.SugaredLogger) *Service {
	if maxText <= 0 {
		maxText = 4000
	}
	return &Service{
		convs:    convs,
		msgs:     msgs,
		users:    users,
		presence: presence,
		notifier: notifier,
		events:   events,
		maxText:  maxText,
		log:      log,
	}
}

// StartConversation finds or lazily creates the conversation between the
// current user and otherUserID. Self-chat is refused; a missing target user
// is surfaced as ErrUserNotFound.
func (s *Service) StartConversation(ctx context.Context, currentUserID, otherUserID string) (*ConversationView, error) {
	if _, err := primitive.ObjectIDFromHex(otherUserID); err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrValidation)
	}
	if currentUserID == otherUserID {
		return nil, fmt.Errorf("%w: cannot chat with yourself", ErrValidation)
	}
	if _, err := s.users.GetByID(ctx, otherUserID); err != nil {
		return nil, ErrUserNotFound
	}

	conv, err := s.convs.GetOrCreate(ctx, currentUserID, otherUserID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, conv, currentUserID)
}

// ListConversations returns the user's conversations, most recently active
// first, enriched with the other participant's presence.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]*ConversationView, error) {
	convs, err := s.convs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*ConversationView, 0, len(convs))
	for _, conv := range convs {
		view, err := s.buildView(ctx, conv, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

type SendMessageInput struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	MessageType    string `json:"messageType"`
	MediaUrl       string `json:"mediaUrl"`
	MediaPublicID  string `json:"mediaPublicId"`
	LinkUrl        string `json:"linkUrl"`
}

// SendMessage validates, persists, then fans out. The fan-out runs strictly
// after the storage write so no client ever sees a message that a history
// read would not return.
func (s *Service) SendMessage(ctx context.Context, senderID string, in SendMessageInput) (*models.Message, error) {
	conv, err := s.loadForParticipant(ctx, in.ConversationID, senderID)
	if err != nil {
		return nil, err
	}

	text, msgType, err := s.validateContent(in)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
		MessageType:    msgType,
		MediaUrl:       in.MediaUrl,
		MediaPublicID:  in.MediaPublicID,
		LinkUrl:        in.LinkUrl,
	}
	stored, err := s.msgs.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.convs.SetLastMessage(ctx, conv.ID, stored.ID, now); err != nil {
		return nil, err
	}
	conv.LastMessageID = stored.ID
	conv.LastMessageTime = now
	metrics.MessagesSent.Inc()

	if s.notifier != nil {
		s.notifier.MessageCreated(conv, stored)
	}
	if s.events != nil {
		if err := s.events.PublishMessageSent(ctx, stored); err != nil {
			s.log.Warnw("message event publish failed", "conversation", conv.ID.Hex(), "err", err)
		}
	}
	return stored, nil
}

// ListMessages returns the conversation history in creation order, oldest
// first. Non-participants get ErrNotFound.
func (s *Service) ListMessages(ctx context.Context, conversationID, requesterID string) ([]*models.Message, error) {
	conv, err := s.loadForParticipant(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	return s.msgs.ListByConversation(ctx, conv.ID)
}

// MarkRead flips the read flag on every message not sent by readerID.
// Idempotent.
func (s *Service) MarkRead(ctx context.Context, conversationID, readerID string) error {
	conv, err := s.loadForParticipant(ctx, conversationID, readerID)
	if err != nil {
		return err
	}
	_, err = s.msgs.MarkRead(ctx, conv.ID, readerID)
	return err
}

// DeleteConversation removes the conversation and all its messages.
func (s *Service) DeleteConversation(ctx context.Context, conversationID, requesterID string) error {
	conv, err := s.loadForParticipant(ctx, conversationID, requesterID)
	if err != nil {
		return err
	}
	if err := s.msgs.DeleteByConversation(ctx, conv.ID); err != nil {
		return err
	}
	return s.convs.Delete(ctx, conv.ID)
}

func (s *Service) loadForParticipant(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid conversation id", ErrValidation)
	}
	conv, err := s.convs.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		// same answer as a missing conversation on purpose
		return nil, ErrNotFound
	}
	return conv, nil
}

func (s *Service) validateContent(in SendMessageInput) (text, msgType string, err error) {
	text = strings.TrimSpace(in.Text)
	msgType = models.NormalizeMessageType(in.MessageType)

	if len(text) > s.maxText {
		return "", "", fmt.Errorf("%w: message text exceeds %d characters", ErrValidation, s.maxText)
	}
	switch msgType {
	case models.MessageTypeImage:
		if in.MediaUrl == "" {
			return "", "", fmt.Errorf("%w: image message requires media url", ErrValidation)
		}
	case models.MessageTypeLink:
		if in.LinkUrl == "" {
			return "", "", fmt.Errorf("%w: link message requires url", ErrValidation)
		}
	default:
		if text == "" {
			return "", "", fmt.Errorf("%w: message text is required", ErrValidation)
		}
	}
	if text == "" && in.MediaUrl == "" && in.LinkUrl == "" {
		return "", "", fmt.Errorf("%w: message payload is empty", ErrValidation)
	}
	return text, msgType, nil
}

func (s *Service) buildView(ctx context.Context, conv *models.Conversation, currentUserID string) (*ConversationView, error) {
	users, err := s.users.GetManyByIDs(ctx, conv.Participants)
	if err != nil {
		return nil, err
	}

	view := &ConversationView{
		ID:              conv.ID.Hex(),
		Participants:    make([]ParticipantView, 0, len(users)),
		LastMessageTime: conv.LastMessageTime,
		CreatedAt:       conv.CreatedAt,
		UpdatedAt:       conv.UpdatedAt,
	}
	for _, u := range users {
		pv := participantView(u, s.presence.IsOnline(u.ID.Hex()))
		view.Participants = append(view.Participants, pv)
		if pv.ID != currentUserID {
			other := pv
			view.OtherUser = &other
		}
	}

	if !conv.LastMessageID.IsZero() {
		if last, err := s.msgs.GetByID(ctx, conv.LastMessageID); err == nil {
			view.LastMessage = last
		}
	}
	return view, nil
}
