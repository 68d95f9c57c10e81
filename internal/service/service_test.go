package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/conversation-service/internal/models"
	"github.com/fathima-sithara/conversation-service/internal/repository"
)

type stubLookup struct {
	users map[string]*models.MinimalUser
}

func (s stubLookup) MinimalUser(_ context.Context, userID string) (*models.MinimalUser, error) {
	return s.users[userID], nil
}

type capturingPublisher struct {
	events []MessageEvent
}

func (p *capturingPublisher) PublishMessage(_ context.Context, _ string, v interface{}) error {
	if ev, ok := v.(MessageEvent); ok {
		p.events = append(p.events, ev)
	}
	return nil
}

type capturingLifecycle struct {
	created       []string
	directCreated []string
}

func (p *capturingLifecycle) PublishConversationCreated(conversationID string, _ []string, _ bool) {
	p.created = append(p.created, conversationID)
}

func (p *capturingLifecycle) PublishConversationDirectCreated(conversationID string, _ []string) {
	p.directCreated = append(p.directCreated, conversationID)
}

type fixture struct {
	mem       *repository.Memory
	msgs      *MessageService
	convs     *ConversationService
	reactions *ReactionService
	pub       *capturingPublisher
	lifecycle *capturingLifecycle
}

func newFixture() *fixture {
	mem := repository.NewMemory()
	lookup := stubLookup{users: map[string]*models.MinimalUser{
		"alice": {ID: "alice", Username: "alice", ProfilePictureURL: "/img/alice.png"},
		"bob":   {ID: "bob", Username: "bob", ProfilePictureURL: "/img/bob.png"},
		"carol": {ID: "carol", Username: "carol"},
	}}
	log := zap.NewNop().Sugar()
	pub := &capturingPublisher{}
	lifecycle := &capturingLifecycle{}

	f := &fixture{
		mem:       mem,
		msgs:      NewMessageService(mem.Messages, mem.Conversations, mem.Reactions, lookup, pub, log),
		convs:     NewConversationService(mem.Conversations, lookup, lifecycle, log),
		reactions: NewReactionService(mem.Reactions, mem.Messages, mem.Conversations, lookup, log),
		pub:       pub,
		lifecycle: lifecycle,
	}

	// deterministic, strictly increasing clock shared by all services
	clock := testClock()
	f.msgs.now = clock
	f.convs.now = clock
	f.reactions.now = clock
	return f
}

func testClock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func (f *fixture) seedConversation(t *testing.T, id string, participants ...string) {
	t.Helper()
	err := f.mem.Conversations.Create(context.Background(), &models.Conversation{
		ID:           id,
		Participants: participants,
		UnreadCount:  map[string]int64{},
		MutedBy:      map[string]bool{},
		CreatedAt:    time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed conversation failed: %v", err)
	}
}

func (f *fixture) send(t *testing.T, convID, sender, content string) *MessageView {
	t.Helper()
	view, err := f.msgs.Send(context.Background(), SendMessageInput{ConversationID: convID, Content: content}, sender)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	return view
}

func (f *fixture) conversation(t *testing.T, id string) *models.Conversation {
	t.Helper()
	c, err := f.mem.Conversations.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID conversation failed: %v", err)
	}
	return c
}
