package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/models"
)

// ErrNotFound is returned by read operations when the entity is absent or
// excluded by soft delete. Mutation operations on absent entities are
// silent no-ops so retried client requests stay idempotent.
var ErrNotFound = errors.New("not found")

// ConversationStore persists conversations and their denormalized
// last-message cache and per-user counters.
type ConversationStore interface {
	ListForUser(ctx context.Context, userID string, skip, limit int64) ([]*models.Conversation, error)
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	Create(ctx context.Context, c *models.Conversation) error

	// FindOrCreateDirect returns the non-group conversation holding
	// exactly these two participants, creating it when absent; created
	// reports whether this call created it. Two racing callers may still
	// create duplicates; there is no unique index.
	FindOrCreateDirect(ctx context.Context, userA, userB string) (c *models.Conversation, created bool, err error)

	SetMuted(ctx context.Context, id, userID string, muted bool) error
	SetStatus(ctx context.Context, id, status string) error
	SetUnreadCount(ctx context.Context, id, userID string, count int64) error

	// PointToMessage overwrites the conversation's last-message cache with
	// the given message.
	PointToMessage(ctx context.Context, id string, m *models.Message) error
}

// MessageStore persists messages. Create and Delete also maintain the
// owning conversation's last-message pointer and unread counters, so the
// denormalization stays co-located with the writes that invalidate it.
type MessageStore interface {
	ListByConversation(ctx context.Context, conversationID string, skip, limit int64) ([]*models.Message, error)
	GetByID(ctx context.Context, id string) (*models.Message, error)
	Create(ctx context.Context, m *models.Message) error
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
	Edit(ctx context.Context, id, content string, at time.Time) error
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id, userID string) error
	ToggleSave(ctx context.Context, id string) error
	SearchByContent(ctx context.Context, conversationID, query string, skip, limit int64) ([]*models.Message, error)
	ListMedia(ctx context.Context, conversationID string, skip, limit int64) ([]*models.Message, error)

	// CountUnread counts non-deleted messages not sent by userID and not
	// read by them. With an empty conversationID it spans every
	// conversation the user participates in.
	CountUnread(ctx context.Context, userID, conversationID string) (int64, error)

	// ListUnread returns the messages CountUnread would count within one
	// conversation, oldest first.
	ListUnread(ctx context.Context, conversationID, userID string) ([]*models.Message, error)
}

// ReactionStore keeps at most one live reaction per (message, user) pair.
type ReactionStore interface {
	ListByMessage(ctx context.Context, messageID string) ([]*models.Reaction, error)
	GetUserReaction(ctx context.Context, messageID, userID string) (*models.Reaction, error)
	Add(ctx context.Context, r *models.Reaction) error
	Update(ctx context.Context, messageID, userID, newType string) error
	Remove(ctx context.Context, messageID, userID string) error
}
