package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PostRepository answers existence checks for user-authored posts when a
// client joins a live-reader room.
type PostRepository struct {
	coll *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{coll: db.Collection(collPosts)}
}

func (r *PostRepository) Exists(ctx context.Context, postID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return false, nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
