package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/conversation-service/internal/models"
)

type mongoReactionStore struct {
	coll *mongo.Collection
}

func (s *mongoReactionStore) ListByMessage(ctx context.Context, messageID string) ([]*models.Reaction, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"message_id": messageID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*models.Reaction{}
	for cur.Next(ctx) {
		var r models.Reaction
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, cur.Err()
}

func (s *mongoReactionStore) GetUserReaction(ctx context.Context, messageID, userID string) (*models.Reaction, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var r models.Reaction
	err := s.coll.FindOne(ctx, bson.M{"message_id": messageID, "user_id": userID}).Decode(&r)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// Add upserts on the (message, user) pair so a duplicate add degrades to
// an in-place type overwrite instead of a second row.
func (s *mongoReactionStore) Add(ctx context.Context, r *models.Reaction) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"message_id": r.MessageID, "user_id": r.UserID}
	update := bson.M{
		"$set": bson.M{"reaction_type": r.Type},
		"$setOnInsert": bson.M{
			"_id":        r.ID,
			"message_id": r.MessageID,
			"user_id":    r.UserID,
			"created_at": r.CreatedAt,
		},
	}
	_, err := s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (s *mongoReactionStore) Update(ctx context.Context, messageID, userID, newType string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"message_id": messageID, "user_id": userID}
	_, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"reaction_type": newType}})
	return err
}

func (s *mongoReactionStore) Remove(ctx context.Context, messageID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.coll.DeleteOne(ctx, bson.M{"message_id": messageID, "user_id": userID})
	return err
}
