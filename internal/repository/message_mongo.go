package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/conversation-service/internal/models"
)

var mediaTypes = bson.A{models.MessageImage, models.MessageVideo, models.MessageAudio, models.MessageFile}

type mongoMessageStore struct {
	coll     *mongo.Collection
	convColl *mongo.Collection
}

func (s *mongoMessageStore) ListByConversation(ctx context.Context, conversationID string, skip, limit int64) ([]*models.Message, error) {
	filter := bson.M{"conversation_id": conversationID, "is_deleted": false}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)
	return s.find(ctx, filter, opts)
}

func (s *mongoMessageStore) GetByID(ctx context.Context, id string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var m models.Message
	err := s.coll.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	normalizeMessage(&m)
	return &m, nil
}

// Create inserts the message, re-points the conversation's last-message
// cache at it, and re-derives every other participant's unread counter
// from the message collection. The counter is recomputed rather than
// incremented so missed updates heal on the next write.
func (s *mongoMessageStore) Create(ctx context.Context, m *models.Message) error {
	normalizeMessage(m)
	{
		ctx, cancel := context.WithTimeout(ctx, opTimeout)
		// Upsert keyed on the caller-minted id keeps retried sends from
		// inserting twice.
		_, err := s.coll.UpdateOne(ctx,
			bson.M{"_id": m.ID},
			bson.M{"$setOnInsert": m},
			options.Update().SetUpsert(true),
		)
		cancel()
		if err != nil {
			return err
		}
	}

	conv, err := s.conversation(ctx, m.ConversationID)
	if err != nil {
		return err
	}

	if err := s.pointTo(ctx, m.ConversationID, m); err != nil {
		return err
	}

	for _, p := range conv.Participants {
		if p == m.SenderID {
			continue
		}
		n, err := s.CountUnread(ctx, p, m.ConversationID)
		if err != nil {
			return err
		}
		if err := s.setUnread(ctx, m.ConversationID, p, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *mongoMessageStore) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Filter keeps the first read timestamp; a second read is a no-op.
	filter := bson.M{"_id": id, "read_by." + userID: bson.M{"$exists": false}}
	_, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"read_by." + userID: at}})
	return err
}

func (s *mongoMessageStore) Edit(ctx context.Context, id, content string, at time.Time) error {
	var m models.Message
	{
		ctx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()
		err := s.coll.FindOneAndUpdate(
			ctx,
			bson.M{"_id": id, "is_deleted": false},
			bson.M{"$set": bson.M{"content": content, "is_edited": true, "edited_at": at}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&m)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return nil
			}
			return err
		}
	}

	conv, err := s.conversation(ctx, m.ConversationID)
	if err != nil {
		return err
	}
	if conv.LastMessageID == id {
		return s.pointTo(ctx, m.ConversationID, &m)
	}
	return nil
}

// Delete soft-deletes the message. When it was the conversation's last
// message, the pointer moves back to the most recent older non-deleted
// message. With no such message the pointer is left stale; list views
// tolerate a preview of a deleted message in that degraded state.
func (s *mongoMessageStore) Delete(ctx context.Context, id string) error {
	var m models.Message
	{
		ctx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()
		err := s.coll.FindOneAndUpdate(
			ctx,
			bson.M{"_id": id, "is_deleted": false},
			bson.M{"$set": bson.M{"is_deleted": true}},
		).Decode(&m)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return nil
			}
			return err
		}
	}

	conv, err := s.conversation(ctx, m.ConversationID)
	if err != nil {
		return err
	}
	if conv.LastMessageID != id {
		return nil
	}

	prev, err := s.latestBefore(ctx, m.ConversationID, m.CreatedAt)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}
	return s.pointTo(ctx, m.ConversationID, prev)
}

func (s *mongoMessageStore) ToggleLike(ctx context.Context, id, userID string) error {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var update bson.M
	if m.LikedByUser(userID) {
		update = bson.M{"$pull": bson.M{"liked_by": userID}}
	} else {
		update = bson.M{"$addToSet": bson.M{"liked_by": userID}}
	}
	_, err = s.coll.UpdateByID(ctx, id, update)
	return err
}

func (s *mongoMessageStore) ToggleSave(ctx context.Context, id string) error {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err = s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_saved": !m.IsSaved}})
	return err
}

func (s *mongoMessageStore) SearchByContent(ctx context.Context, conversationID, query string, skip, limit int64) ([]*models.Message, error) {
	if strings.TrimSpace(query) == "" {
		return []*models.Message{}, nil
	}
	filter := bson.M{
		"conversation_id": conversationID,
		"is_deleted":      false,
		"content":         primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	return s.find(ctx, filter, opts)
}

func (s *mongoMessageStore) ListMedia(ctx context.Context, conversationID string, skip, limit int64) ([]*models.Message, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"is_deleted":      false,
		"message_type":    bson.M{"$in": mediaTypes},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	return s.find(ctx, filter, opts)
}

func (s *mongoMessageStore) CountUnread(ctx context.Context, userID, conversationID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"is_deleted":       false,
		"sender_id":        bson.M{"$ne": userID},
		"read_by." + userID: bson.M{"$exists": false},
	}
	if conversationID != "" {
		filter["conversation_id"] = conversationID
	} else {
		ids, err := s.convColl.Distinct(ctx, "_id", bson.M{
			"participants": userID,
			"status":       bson.M{"$ne": models.ConversationDeleted},
		})
		if err != nil {
			return 0, err
		}
		filter["conversation_id"] = bson.M{"$in": ids}
	}
	return s.coll.CountDocuments(ctx, filter)
}

func (s *mongoMessageStore) ListUnread(ctx context.Context, conversationID, userID string) ([]*models.Message, error) {
	filter := bson.M{
		"conversation_id":  conversationID,
		"is_deleted":       false,
		"sender_id":        bson.M{"$ne": userID},
		"read_by." + userID: bson.M{"$exists": false},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return s.find(ctx, filter, opts)
}

func (s *mongoMessageStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*models.Message{}
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		normalizeMessage(&m)
		out = append(out, &m)
	}
	return out, cur.Err()
}

func (s *mongoMessageStore) latestBefore(ctx context.Context, conversationID string, before time.Time) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"conversation_id": conversationID,
		"is_deleted":      false,
		"created_at":      bson.M{"$lt": before},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var m models.Message
	if err := s.coll.FindOne(ctx, filter, opts).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	normalizeMessage(&m)
	return &m, nil
}

func (s *mongoMessageStore) conversation(ctx context.Context, id string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var c models.Conversation
	if err := s.convColl.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	normalizeConversation(&c)
	return &c, nil
}

func (s *mongoMessageStore) pointTo(ctx context.Context, conversationID string, m *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.convColl.UpdateByID(ctx, conversationID, bson.M{"$set": bson.M{
		"last_message_id":        m.ID,
		"last_message_preview":   messagePreview(m.Content),
		"last_message_sender_id": m.SenderID,
		"last_activity_at":       m.CreatedAt,
	}})
	return err
}

func (s *mongoMessageStore) setUnread(ctx context.Context, conversationID, userID string, count int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.convColl.UpdateByID(ctx, conversationID, bson.M{"$set": bson.M{"unread_count." + userID: count}})
	return err
}

func normalizeMessage(m *models.Message) {
	if m.ReadBy == nil {
		m.ReadBy = map[string]time.Time{}
	}
	if m.LikedBy == nil {
		m.LikedBy = []string{}
	}
	if m.MessageType == "" {
		m.MessageType = models.MessageText
	}
}
