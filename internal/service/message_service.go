package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathima-sithara/conversation-service/internal/models"
	"github.com/fathima-sithara/conversation-service/internal/repository"
	"github.com/fathima-sithara/conversation-service/internal/users"
)

// EventPublisher is the downstream event stream (kafka in production).
// A nil publisher disables events; publish failures are logged, never
// surfaced to the caller.
type EventPublisher interface {
	PublishMessage(ctx context.Context, key string, v interface{}) error
}

// MessageEvent is emitted on the event stream after a successful write,
// keyed by conversation id so consumers can fan out per conversation.
type MessageEvent struct {
	Type           string       `json:"type"` // message.created|message.edited|message.deleted|message.read
	ConversationID string       `json:"conversation_id"`
	MessageID      string       `json:"message_id"`
	UserID         string       `json:"user_id"`
	Message        *MessageView `json:"message,omitempty"`
}

type SendMessageInput struct {
	ConversationID string         `json:"conversation_id"`
	Content        string         `json:"content"`
	MessageType    string         `json:"message_type"`
	Media          []models.Media `json:"media"`
	ReplyToID      string         `json:"reply_to_message_id"`
}

// MessageService orchestrates message writes against the message and
// conversation stores, enforces participant/sender authorization and
// assembles outward message views.
type MessageService struct {
	msgs      repository.MessageStore
	convs     repository.ConversationStore
	reactions repository.ReactionStore
	users     users.Lookup
	pub       EventPublisher
	log       *zap.SugaredLogger
	now       func() time.Time
}

func NewMessageService(
	msgs repository.MessageStore,
	convs repository.ConversationStore,
	reactions repository.ReactionStore,
	lookup users.Lookup,
	pub EventPublisher,
	log *zap.SugaredLogger,
) *MessageService {
	return &MessageService{
		msgs:      msgs,
		convs:     convs,
		reactions: reactions,
		users:     lookup,
		pub:       pub,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Send persists a new message. The store call also re-points the
// conversation's last-message cache and re-derives the other
// participants' unread counters.
func (s *MessageService) Send(ctx context.Context, in SendMessageInput, senderID string) (*MessageView, error) {
	conv, err := s.participantConversation(ctx, in.ConversationID, senderID)
	if err != nil {
		return nil, err
	}

	if in.ReplyToID != "" {
		target, err := s.msgs.GetByID(ctx, in.ReplyToID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInvalidOperation
			}
			return nil, err
		}
		if target.ConversationID != conv.ID {
			return nil, ErrInvalidOperation
		}
	}

	now := s.now()
	m := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        in.Content,
		MessageType:    in.MessageType,
		Media:          in.Media,
		ReplyToID:      in.ReplyToID,
		ReadBy:         map[string]time.Time{senderID: now},
		LikedBy:        []string{},
		CreatedAt:      now,
	}
	if m.MessageType == "" {
		m.MessageType = models.MessageText
	}
	if err := s.msgs.Create(ctx, m); err != nil {
		s.log.Errorw("create message", "conversation_id", conv.ID, "message_id", m.ID, "err", err)
		return nil, err
	}

	view := s.assembleMessage(ctx, m)
	s.publish(ctx, MessageEvent{
		Type:           "message.created",
		ConversationID: conv.ID,
		MessageID:      m.ID,
		UserID:         senderID,
		Message:        view,
	})
	return view, nil
}

// Get returns one message for a participant of its conversation.
func (s *MessageService) Get(ctx context.Context, id, userID string) (*MessageView, error) {
	m, _, err := s.accessibleMessage(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.assembleMessage(ctx, m), nil
}

// List returns the conversation's messages oldest first.
func (s *MessageService) List(ctx context.Context, conversationID, userID string, skip, limit int64) ([]*MessageView, error) {
	if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	ms, err := s.msgs.ListByConversation(ctx, conversationID, skip, limit)
	if err != nil {
		return nil, err
	}
	return s.assembleMessages(ctx, ms), nil
}

// Edit updates a message's content. Only the original sender may edit;
// created time and sender never change.
func (s *MessageService) Edit(ctx context.Context, id, userID, content string) (*MessageView, error) {
	m, err := s.msgs.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	if m.SenderID != userID {
		return nil, ErrUnauthorized
	}

	if err := s.msgs.Edit(ctx, id, content, s.now()); err != nil {
		s.log.Errorw("edit message", "message_id", id, "err", err)
		return nil, err
	}
	m, err = s.msgs.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	view := s.assembleMessage(ctx, m)
	s.publish(ctx, MessageEvent{
		Type:           "message.edited",
		ConversationID: m.ConversationID,
		MessageID:      id,
		UserID:         userID,
		Message:        view,
	})
	return view, nil
}

// Delete soft-deletes a message. Only the original sender may delete.
func (s *MessageService) Delete(ctx context.Context, id, userID string) error {
	m, err := s.msgs.GetByID(ctx, id)
	if err != nil {
		return s.mapStoreErr(err)
	}
	if m.SenderID != userID {
		return ErrUnauthorized
	}

	if err := s.msgs.Delete(ctx, id); err != nil {
		s.log.Errorw("delete message", "message_id", id, "err", err)
		return err
	}
	s.publish(ctx, MessageEvent{
		Type:           "message.deleted",
		ConversationID: m.ConversationID,
		MessageID:      id,
		UserID:         userID,
	})
	return nil
}

// MarkRead records userID's first read of the message and re-derives
// their unread counter on the conversation.
func (s *MessageService) MarkRead(ctx context.Context, id, userID string) error {
	m, conv, err := s.accessibleMessage(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.msgs.MarkRead(ctx, id, userID, s.now()); err != nil {
		s.log.Errorw("mark read", "message_id", id, "user_id", userID, "err", err)
		return err
	}
	if err := s.refreshUnread(ctx, conv.ID, userID); err != nil {
		return err
	}
	s.publish(ctx, MessageEvent{
		Type:           "message.read",
		ConversationID: m.ConversationID,
		MessageID:      id,
		UserID:         userID,
	})
	return nil
}

// MarkConversationRead marks every unread message in the conversation
// not sent by the caller, then zeroes the caller's unread counter.
func (s *MessageService) MarkConversationRead(ctx context.Context, conversationID, userID string) error {
	if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	unread, err := s.msgs.ListUnread(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	now := s.now()
	for _, m := range unread {
		if err := s.msgs.MarkRead(ctx, m.ID, userID, now); err != nil {
			s.log.Errorw("mark read", "message_id", m.ID, "user_id", userID, "err", err)
			return err
		}
	}
	return s.convs.SetUnreadCount(ctx, conversationID, userID, 0)
}

// ToggleLike adds or removes the caller from the message's like set.
func (s *MessageService) ToggleLike(ctx context.Context, id, userID string) error {
	if _, _, err := s.accessibleMessage(ctx, id, userID); err != nil {
		return err
	}
	return s.msgs.ToggleLike(ctx, id, userID)
}

// ToggleSave flips the message's saved flag.
func (s *MessageService) ToggleSave(ctx context.Context, id, userID string) error {
	if _, _, err := s.accessibleMessage(ctx, id, userID); err != nil {
		return err
	}
	return s.msgs.ToggleSave(ctx, id)
}

// Search matches message content case-insensitively, newest first. An
// empty query is rejected rather than matching everything.
func (s *MessageService) Search(ctx context.Context, conversationID, userID, query string, skip, limit int64) ([]*MessageView, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidOperation
	}
	if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	ms, err := s.msgs.SearchByContent(ctx, conversationID, query, skip, limit)
	if err != nil {
		return nil, err
	}
	return s.assembleMessages(ctx, ms), nil
}

// ListMedia returns the conversation's media messages, newest first.
func (s *MessageService) ListMedia(ctx context.Context, conversationID, userID string, skip, limit int64) ([]*MessageView, error) {
	if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	ms, err := s.msgs.ListMedia(ctx, conversationID, skip, limit)
	if err != nil {
		return nil, err
	}
	return s.assembleMessages(ctx, ms), nil
}

// CountUnread reports the caller's unread total, optionally scoped to one
// conversation.
func (s *MessageService) CountUnread(ctx context.Context, userID, conversationID string) (int64, error) {
	if conversationID != "" {
		if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
			return 0, err
		}
	}
	return s.msgs.CountUnread(ctx, userID, conversationID)
}

func (s *MessageService) participantConversation(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrUnauthorized
	}
	return conv, nil
}

// accessibleMessage loads the message and checks the requester belongs to
// its conversation.
func (s *MessageService) accessibleMessage(ctx context.Context, id, userID string) (*models.Message, *models.Conversation, error) {
	m, err := s.msgs.GetByID(ctx, id)
	if err != nil {
		return nil, nil, s.mapStoreErr(err)
	}
	conv, err := s.participantConversation(ctx, m.ConversationID, userID)
	if err != nil {
		return nil, nil, err
	}
	return m, conv, nil
}

func (s *MessageService) refreshUnread(ctx context.Context, conversationID, userID string) error {
	n, err := s.msgs.CountUnread(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	return s.convs.SetUnreadCount(ctx, conversationID, userID, n)
}

func (s *MessageService) mapStoreErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *MessageService) publish(ctx context.Context, ev MessageEvent) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishMessage(ctx, ev.ConversationID, ev); err != nil {
		s.log.Errorw("publish message event", "type", ev.Type, "conversation_id", ev.ConversationID, "err", err)
	}
}

func (s *MessageService) assembleMessages(ctx context.Context, ms []*models.Message) []*MessageView {
	out := make([]*MessageView, 0, len(ms))
	for _, m := range ms {
		out = append(out, s.assembleMessage(ctx, m))
	}
	return out
}

func (s *MessageService) assembleMessage(ctx context.Context, m *models.Message) *MessageView {
	view := &MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         s.resolveUser(ctx, m.SenderID),
		Content:        m.Content,
		MessageType:    m.MessageType,
		Media:          m.Media,
		LikedBy:        m.LikedBy,
		IsSaved:        m.IsSaved,
		IsEdited:       m.IsEdited,
		EditedAt:       m.EditedAt,
		CreatedAt:      m.CreatedAt,
	}

	if m.ReplyToID != "" {
		if target, err := s.msgs.GetByID(ctx, m.ReplyToID); err == nil {
			view.ReplyTo = &ReplyPreview{
				ID:      target.ID,
				Content: target.Content,
				Sender:  s.resolveUser(ctx, target.SenderID),
			}
		}
	}

	view.ReadBy = make([]ReadReceipt, 0, len(m.ReadBy))
	for userID, at := range m.ReadBy {
		view.ReadBy = append(view.ReadBy, ReadReceipt{User: s.resolveUser(ctx, userID), ReadAt: at})
	}
	// map iteration order is random; receipts are presented oldest first
	sort.Slice(view.ReadBy, func(i, j int) bool {
		if !view.ReadBy[i].ReadAt.Equal(view.ReadBy[j].ReadAt) {
			return view.ReadBy[i].ReadAt.Before(view.ReadBy[j].ReadAt)
		}
		return view.ReadBy[i].User.ID < view.ReadBy[j].User.ID
	})

	view.Reactions = []ReactionView{}
	if rs, err := s.reactions.ListByMessage(ctx, m.ID); err == nil {
		for _, r := range rs {
			view.Reactions = append(view.Reactions, ReactionView{
				ID:        r.ID,
				MessageID: r.MessageID,
				Type:      r.Type,
				User:      s.resolveUser(ctx, r.UserID),
				CreatedAt: r.CreatedAt,
			})
		}
	} else {
		s.log.Errorw("list reactions", "message_id", m.ID, "err", err)
	}
	return view
}

func (s *MessageService) resolveUser(ctx context.Context, userID string) *models.MinimalUser {
	u, err := s.users.MinimalUser(ctx, userID)
	if err != nil {
		s.log.Errorw("resolve user", "user_id", userID, "err", err)
	}
	if u == nil {
		return &models.MinimalUser{ID: userID, Username: fallbackUsername}
	}
	return u
}
