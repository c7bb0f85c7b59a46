package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Harishreddyyarramada/novawrite-realtime/internal/chat"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/models"
)

type ConversationRepository struct {
	coll *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{coll: db.Collection(collConversations)}
}

// GetOrCreate looks the pair up first; on a miss it inserts, and a duplicate
// key error means a concurrent caller won the race, so it re-fetches.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	pair := models.PairKey(userA, userB)

	if conv, err := r.findByPair(ctx, pair); err == nil {
		return conv, nil
	} else if !errors.Is(err, chat.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	conv := &models.Conversation{
		Participants: []string{userA, userB},
		PairKey:      pair,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err := r.coll.InsertOne(ctx, conv)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return r.findByPair(ctx, pair)
		}
		return nil, err
	}
	conv.ID = res.InsertedID.(primitive.ObjectID)
	return conv, nil
}

func (r *ConversationRepository) findByPair(ctx context.Context, pair string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.coll.FindOne(ctx, bson.M{"pair_key": pair}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, chat.ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, chat.ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_message_time", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Conversation
	for cur.Next(ctx) {
		var conv models.Conversation
		if err := cur.Decode(&conv); err != nil {
			return nil, err
		}
		out = append(out, &conv)
	}
	return out, cur.Err()
}

func (r *ConversationRepository) SetLastMessage(ctx context.Context, convID, msgID primitive.ObjectID, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": convID}, bson.M{"$set": bson.M{
		"last_message_id":   msgID,
		"last_message_time": at,
		"updated_at":        at,
	}})
	return err
}

func (r *ConversationRepository) Delete(ctx context.Context, convID primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": convID})
	return err
}
