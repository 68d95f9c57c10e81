package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/conversation-service/internal/models"
)

type mongoConversationStore struct {
	coll *mongo.Collection
}

func (s *mongoConversationStore) ListForUser(ctx context.Context, userID string, skip, limit int64) ([]*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"participants": userID,
		"status":       bson.M{"$ne": models.ConversationDeleted},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "last_activity_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*models.Conversation{}
	for cur.Next(ctx) {
		var c models.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		normalizeConversation(&c)
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (s *mongoConversationStore) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": bson.M{"$ne": models.ConversationDeleted}}
	var c models.Conversation
	if err := s.coll.FindOne(ctx, filter).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	normalizeConversation(&c)
	return &c, nil
}

func (s *mongoConversationStore) Create(ctx context.Context, c *models.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	normalizeConversation(c)
	c.Status = models.ConversationActive
	_, err := s.coll.InsertOne(ctx, c)
	return err
}

func (s *mongoConversationStore) FindOrCreateDirect(ctx context.Context, userA, userB string) (*models.Conversation, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	mintedID := uuid.NewString()
	filter := bson.M{
		"is_group":     false,
		"status":       bson.M{"$ne": models.ConversationDeleted},
		"participants": bson.M{"$all": bson.A{userA, userB}, "$size": 2},
	}
	// Upsert narrows, but does not close, the window in which two racing
	// callers create duplicate direct conversations. There is no unique
	// index on the participant pair.
	update := bson.M{"$setOnInsert": &models.Conversation{
		ID:             mintedID,
		Participants:   []string{userA, userB},
		IsGroup:        false,
		UnreadCount:    map[string]int64{},
		MutedBy:        map[string]bool{},
		Status:         models.ConversationActive,
		LastActivityAt: now,
		CreatedAt:      now,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c models.Conversation
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c); err != nil {
		return nil, false, err
	}
	normalizeConversation(&c)
	// the minted id survives only when the upsert inserted
	return &c, c.ID == mintedID, nil
}

func (s *mongoConversationStore) SetMuted(ctx context.Context, id, userID string, muted bool) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"muted_by." + userID: muted}})
	return err
}

func (s *mongoConversationStore) SetStatus(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": status}})
	return err
}

func (s *mongoConversationStore) SetUnreadCount(ctx context.Context, id, userID string, count int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"unread_count." + userID: count}})
	return err
}

func (s *mongoConversationStore) PointToMessage(ctx context.Context, id string, m *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"last_message_id":        m.ID,
		"last_message_preview":   messagePreview(m.Content),
		"last_message_sender_id": m.SenderID,
		"last_activity_at":       m.CreatedAt,
	}})
	return err
}

func normalizeConversation(c *models.Conversation) {
	if c.UnreadCount == nil {
		c.UnreadCount = map[string]int64{}
	}
	if c.MutedBy == nil {
		c.MutedBy = map[string]bool{}
	}
}
