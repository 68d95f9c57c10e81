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

// LifecyclePublisher receives conversation lifecycle notifications (NATS
// in production). Nil disables them.
type LifecyclePublisher interface {
	PublishConversationCreated(conversationID string, participants []string, isGroup bool)
	PublishConversationDirectCreated(conversationID string, participants []string)
}

type CreateConversationInput struct {
	Participants []string `json:"participants"`
	IsGroup      bool     `json:"is_group"`
	Title        string   `json:"title"`
	ImageURL     string   `json:"image_url"`
	IsVanish     bool     `json:"is_vanish"`
}

// ConversationService orchestrates conversation lifecycle and assembles
// outward conversation views.
type ConversationService struct {
	convs repository.ConversationStore
	users users.Lookup
	pub   LifecyclePublisher
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewConversationService(
	convs repository.ConversationStore,
	lookup users.Lookup,
	pub LifecyclePublisher,
	log *zap.SugaredLogger,
) *ConversationService {
	return &ConversationService{
		convs: convs,
		users: lookup,
		pub:   pub,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *ConversationService) ListForUser(ctx context.Context, userID string, skip, limit int64) ([]*ConversationView, error) {
	cs, err := s.convs.ListForUser(ctx, userID, skip, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*ConversationView, 0, len(cs))
	for _, c := range cs {
		out = append(out, s.assemble(ctx, c, userID))
	}
	return out, nil
}

func (s *ConversationService) GetByID(ctx context.Context, id, userID string) (*ConversationView, error) {
	c, err := s.participantConversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, c, userID), nil
}

// Create creates a conversation; the creator is added to the participant
// list when absent. A non-group conversation must name exactly two
// participants.
func (s *ConversationService) Create(ctx context.Context, in CreateConversationInput, creatorID string) (*ConversationView, error) {
	participants := in.Participants
	found := false
	for _, p := range participants {
		if p == creatorID {
			found = true
			break
		}
	}
	if !found {
		participants = append(participants, creatorID)
	}
	if !in.IsGroup && len(participants) != 2 {
		return nil, ErrInvalidOperation
	}

	now := s.now()
	c := &models.Conversation{
		ID:             uuid.NewString(),
		Participants:   participants,
		IsGroup:        in.IsGroup,
		Title:          in.Title,
		ImageURL:       in.ImageURL,
		IsVanish:       in.IsVanish,
		UnreadCount:    map[string]int64{},
		MutedBy:        map[string]bool{},
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if err := s.convs.Create(ctx, c); err != nil {
		s.log.Errorw("create conversation", "conversation_id", c.ID, "err", err)
		return nil, err
	}
	if s.pub != nil {
		s.pub.PublishConversationCreated(c.ID, c.Participants, c.IsGroup)
	}
	return s.assemble(ctx, c, creatorID), nil
}

// FindOrCreateDirect returns the caller's direct conversation with the
// other user, creating it when absent. The other user must resolve and
// must not be the caller.
func (s *ConversationService) FindOrCreateDirect(ctx context.Context, userID, otherID string) (*ConversationView, error) {
	if userID == otherID {
		return nil, ErrInvalidOperation
	}
	other, err := s.users.MinimalUser(ctx, otherID)
	if err != nil {
		s.log.Errorw("resolve user", "user_id", otherID, "err", err)
		return nil, err
	}
	if other == nil {
		return nil, ErrNotFound
	}

	c, created, err := s.convs.FindOrCreateDirect(ctx, userID, otherID)
	if err != nil {
		s.log.Errorw("find or create direct", "user_id", userID, "other_id", otherID, "err", err)
		return nil, err
	}
	if created && s.pub != nil {
		s.pub.PublishConversationDirectCreated(c.ID, c.Participants)
	}
	return s.assemble(ctx, c, userID), nil
}

func (s *ConversationService) Mute(ctx context.Context, id, userID string, muted bool) error {
	if _, err := s.participantConversation(ctx, id, userID); err != nil {
		return err
	}
	return s.convs.SetMuted(ctx, id, userID, muted)
}

// Archive flips the conversation's status for every participant, not just
// the caller. Per-participant hiding would need archivedBy bookkeeping.
func (s *ConversationService) Archive(ctx context.Context, id, userID string) error {
	if _, err := s.participantConversation(ctx, id, userID); err != nil {
		return err
	}
	return s.convs.SetStatus(ctx, id, models.ConversationArchived)
}

// Delete soft-deletes the conversation for every participant; the
// document is never removed.
func (s *ConversationService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.participantConversation(ctx, id, userID); err != nil {
		return err
	}
	return s.convs.SetStatus(ctx, id, models.ConversationDeleted)
}

func (s *ConversationService) participantConversation(ctx context.Context, id, userID string) (*models.Conversation, error) {
	c, err := s.convs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !c.HasParticipant(userID) {
		return nil, ErrUnauthorized
	}
	return c, nil
}

func (s *ConversationService) assemble(ctx context.Context, c *models.Conversation, userID string) *ConversationView {
	view := &ConversationView{
		ID:                 c.ID,
		IsGroup:            c.IsGroup,
		LastMessageID:      c.LastMessageID,
		LastMessagePreview: c.LastMessagePreview,
		LastMessageSender:  c.LastMessageSenderID,
		LastActivityAt:     c.LastActivityAt,
		UnreadCount:        c.UnreadCount[userID],
		IsMuted:            c.MutedBy[userID],
		Status:             c.Status,
		IsVanish:           c.IsVanish,
	}

	view.Participants = make([]*models.MinimalUser, 0, len(c.Participants))
	var other *models.MinimalUser
	for _, p := range c.Participants {
		u := s.resolveUser(ctx, p)
		view.Participants = append(view.Participants, u)
		if p != userID {
			other = u
		}
	}

	if c.IsGroup {
		view.Title = c.Title
		if view.Title == "" {
			view.Title = fallbackGroupTitle
		}
		view.ImageURL = c.ImageURL
		if view.ImageURL == "" {
			view.ImageURL = fallbackGroupImage
		}
		return view
	}

	// Direct conversations display the other participant.
	if other != nil {
		view.Title = other.Username
		view.ImageURL = other.ProfilePictureURL
	} else {
		view.Title = fallbackUsername
	}
	return view
}

func (s *ConversationService) resolveUser(ctx context.Context, userID string) *models.MinimalUser {
	u, err := s.users.MinimalUser(ctx, userID)
	if err != nil {
		s.log.Errorw("resolve user", "user_id", userID, "err", err)
	}
	if u == nil {
		return &models.MinimalUser{ID: userID, Username: fallbackUsername}
	}
	return u
}
