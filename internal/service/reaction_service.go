package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathima-sithara/conversation-service/internal/models"
	"github.com/fathima-sithara/conversation-service/internal/repository"
	"github.com/fathima-sithara/conversation-service/internal/users"
)

type AddReactionInput struct {
	MessageID string `json:"message_id"`
	Type      string `json:"reaction_type"`
}

// ReactionService orchestrates the one-reaction-per-user toggle cycle:
// first reaction creates, same type removes, different type replaces.
type ReactionService struct {
	reactions repository.ReactionStore
	msgs      repository.MessageStore
	convs     repository.ConversationStore
	users     users.Lookup
	log       *zap.SugaredLogger
	now       func() time.Time
}

func NewReactionService(
	reactions repository.ReactionStore,
	msgs repository.MessageStore,
	convs repository.ConversationStore,
	lookup users.Lookup,
	log *zap.SugaredLogger,
) *ReactionService {
	return &ReactionService{
		reactions: reactions,
		msgs:      msgs,
		convs:     convs,
		users:     lookup,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns all live reactions on a message. Visibility follows the
// message itself: whoever can fetch the message can see its reactions.
func (s *ReactionService) List(ctx context.Context, messageID string) ([]*ReactionView, error) {
	if _, err := s.msgs.GetByID(ctx, messageID); err != nil {
		return nil, s.mapStoreErr(err)
	}
	rs, err := s.reactions.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	out := make([]*ReactionView, 0, len(rs))
	for _, r := range rs {
		out = append(out, s.assemble(ctx, r))
	}
	return out, nil
}

// Add applies the toggle cycle and returns the resulting reaction view,
// or nil when the call toggled the reaction off.
func (s *ReactionService) Add(ctx context.Context, in AddReactionInput, userID string) (*ReactionView, error) {
	if in.Type == "" {
		return nil, ErrInvalidOperation
	}
	if err := s.requireParticipant(ctx, in.MessageID, userID); err != nil {
		return nil, err
	}

	existing, err := s.reactions.GetUserReaction(ctx, in.MessageID, userID)
	switch {
	case err == nil && existing.Type == in.Type:
		// same type again toggles off
		if err := s.reactions.Remove(ctx, in.MessageID, userID); err != nil {
			s.log.Errorw("remove reaction", "message_id", in.MessageID, "user_id", userID, "err", err)
			return nil, err
		}
		return nil, nil
	case err == nil:
		if err := s.reactions.Update(ctx, in.MessageID, userID, in.Type); err != nil {
			s.log.Errorw("update reaction", "message_id", in.MessageID, "user_id", userID, "err", err)
			return nil, err
		}
		existing.Type = in.Type
		return s.assemble(ctx, existing), nil
	case errors.Is(err, repository.ErrNotFound):
		r := &models.Reaction{
			ID:        uuid.NewString(),
			MessageID: in.MessageID,
			UserID:    userID,
			Type:      in.Type,
			CreatedAt: s.now(),
		}
		if err := s.reactions.Add(ctx, r); err != nil {
			s.log.Errorw("add reaction", "message_id", in.MessageID, "user_id", userID, "err", err)
			return nil, err
		}
		return s.assemble(ctx, r), nil
	default:
		return nil, err
	}
}

// Remove deletes the caller's reaction; removing an absent reaction is a
// no-op.
func (s *ReactionService) Remove(ctx context.Context, messageID, userID string) error {
	if err := s.requireParticipant(ctx, messageID, userID); err != nil {
		return err
	}
	return s.reactions.Remove(ctx, messageID, userID)
}

func (s *ReactionService) requireParticipant(ctx context.Context, messageID, userID string) error {
	m, err := s.msgs.GetByID(ctx, messageID)
	if err != nil {
		return s.mapStoreErr(err)
	}
	conv, err := s.convs.GetByID(ctx, m.ConversationID)
	if err != nil {
		return s.mapStoreErr(err)
	}
	if !conv.HasParticipant(userID) {
		return ErrUnauthorized
	}
	return nil
}

func (s *ReactionService) mapStoreErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *ReactionService) assemble(ctx context.Context, r *models.Reaction) *ReactionView {
	u, err := s.users.MinimalUser(ctx, r.UserID)
	if err != nil {
		s.log.Errorw("resolve user", "user_id", r.UserID, "err", err)
	}
	if u == nil {
		u = &models.MinimalUser{ID: r.UserID, Username: fallbackUsername}
	}
	return &ReactionView{
		ID:        r.ID,
		MessageID: r.MessageID,
		Type:      r.Type,
		User:      u,
		CreatedAt: r.CreatedAt,
	}
}
