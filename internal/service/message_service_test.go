package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSendMessage(t *testing.T) {
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	view := f.send(t, "c1", "alice", "hello")

	if view.Content != "hello" {
		t.Fatalf("expected content hello, got %q", view.Content)
	}
	if view.Sender == nil || view.Sender.Username != "alice" {
		t.Fatalf("expected resolved sender alice, got %+v", view.Sender)
	}
	if len(view.ReadBy) != 1 || view.ReadBy[0].User.ID != "alice" {
		t.Fatalf("expected sender-only read receipt, got %+v", view.ReadBy)
	}

	conv := f.conversation(t, "c1")
	if conv.LastMessageID != view.ID {
		t.Fatalf("expected last message %q, got %q", view.ID, conv.LastMessageID)
	}
	if conv.LastMessagePreview != "hello" {
		t.Fatalf("expected preview hello, got %q", conv.LastMessagePreview)
	}
	if conv.LastMessageSenderID != "alice" {
		t.Fatalf("expected last sender alice, got %q", conv.LastMessageSenderID)
	}
	if conv.UnreadCount["bob"] != 1 || conv.UnreadCount["alice"] != 0 {
		t.Fatalf("expected unread bob=1 alice=0, got %+v", conv.UnreadCount)
	}

	if len(f.pub.events) != 1 || f.pub.events[0].Type != "message.created" {
		t.Fatalf("expected one message.created event, got %+v", f.pub.events)
	}
}

func TestSendAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	_, err := f.msgs.Send(ctx, SendMessageInput{ConversationID: "c1", Content: "hi"}, "carol")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-participant, got %v", err)
	}

	_, err = f.msgs.Send(ctx, SendMessageInput{ConversationID: "missing", Content: "hi"}, "alice")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing conversation, got %v", err)
	}
}

func TestSendReplyValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")
	f.seedConversation(t, "c2", "alice", "carol")

	target := f.send(t, "c1", "alice", "original")
	elsewhere := f.send(t, "c2", "alice", "other thread")

	_, err := f.msgs.Send(ctx, SendMessageInput{ConversationID: "c1", Content: "re", ReplyToID: "missing"}, "bob")
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for missing reply target, got %v", err)
	}

	_, err = f.msgs.Send(ctx, SendMessageInput{ConversationID: "c1", Content: "re", ReplyToID: elsewhere.ID}, "bob")
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for cross-conversation reply, got %v", err)
	}

	view, err := f.msgs.Send(ctx, SendMessageInput{ConversationID: "c1", Content: "re", ReplyToID: target.ID}, "bob")
	if err != nil {
		t.Fatalf("valid reply failed: %v", err)
	}
	if view.ReplyTo == nil || view.ReplyTo.ID != target.ID || view.ReplyTo.Content != "original" {
		t.Fatalf("expected populated reply preview, got %+v", view.ReplyTo)
	}
}

func TestEditOnlyBySender(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	m := f.send(t, "c1", "alice", "tpyo")

	if _, err := f.msgs.Edit(ctx, m.ID, "bob", "fixed"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-sender edit, got %v", err)
	}

	view, err := f.msgs.Edit(ctx, m.ID, "alice", "typo")
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if view.Content != "typo" || !view.IsEdited || view.EditedAt == nil {
		t.Fatalf("expected edited view, got %+v", view)
	}
	if !view.CreatedAt.Equal(m.CreatedAt) {
		t.Fatalf("edit must not move created_at")
	}

	conv := f.conversation(t, "c1")
	if conv.LastMessagePreview != "typo" {
		t.Fatalf("expected preview refreshed to typo, got %q", conv.LastMessagePreview)
	}
}

func TestDeleteRevertsLastMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	f.send(t, "c1", "alice", "first")
	second := f.send(t, "c1", "alice", "second")
	third := f.send(t, "c1", "alice", "third")

	if err := f.msgs.Delete(ctx, third.ID, "bob"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-sender delete, got %v", err)
	}

	if err := f.msgs.Delete(ctx, third.ID, "alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	conv := f.conversation(t, "c1")
	if conv.LastMessageID != second.ID || conv.LastMessagePreview != "second" {
		t.Fatalf("expected pointer back at second, got %q / %q", conv.LastMessageID, conv.LastMessagePreview)
	}

	if _, err := f.msgs.Get(ctx, third.ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted message, got %v", err)
	}
}

func TestMarkReadRederivesCounter(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	m1 := f.send(t, "c1", "alice", "one")
	f.send(t, "c1", "alice", "two")

	if got := f.conversation(t, "c1").UnreadCount["bob"]; got != 2 {
		t.Fatalf("expected bob unread 2, got %d", got)
	}

	if err := f.msgs.MarkRead(ctx, m1.ID, "bob"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if got := f.conversation(t, "c1").UnreadCount["bob"]; got != 1 {
		t.Fatalf("expected bob unread 1 after read, got %d", got)
	}

	// repeat read changes nothing
	if err := f.msgs.MarkRead(ctx, m1.ID, "bob"); err != nil {
		t.Fatalf("repeat MarkRead failed: %v", err)
	}
	if got := f.conversation(t, "c1").UnreadCount["bob"]; got != 1 {
		t.Fatalf("expected counter stable on repeat read, got %d", got)
	}
}

func TestMarkConversationRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	f.send(t, "c1", "alice", "one")
	f.send(t, "c1", "alice", "two")
	f.send(t, "c1", "bob", "three")

	if err := f.msgs.MarkConversationRead(ctx, "c1", "bob"); err != nil {
		t.Fatalf("MarkConversationRead failed: %v", err)
	}

	if got := f.conversation(t, "c1").UnreadCount["bob"]; got != 0 {
		t.Fatalf("expected bob unread 0, got %d", got)
	}
	n, err := f.msgs.CountUnread(ctx, "bob", "c1")
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected derived unread 0, got %d", n)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	if _, err := f.msgs.Search(ctx, "c1", "alice", "   ", 0, 10); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for blank query, got %v", err)
	}

	f.send(t, "c1", "alice", "Deploy went fine")
	views, err := f.msgs.Search(ctx, "c1", "bob", "deploy", 0, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one match, got %d", len(views))
	}
}

func TestCountUnreadRequiresParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	if _, err := f.msgs.CountUnread(ctx, "carol", "c1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	m := f.send(t, "c1", "alice", "like me")

	if err := f.msgs.ToggleLike(ctx, m.ID, "carol"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-participant, got %v", err)
	}

	if err := f.msgs.ToggleLike(ctx, m.ID, "bob"); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	view, err := f.msgs.Get(ctx, m.ID, "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(view.LikedBy) != 1 || view.LikedBy[0] != "bob" {
		t.Fatalf("expected bob in liked_by, got %v", view.LikedBy)
	}

	if err := f.msgs.ToggleLike(ctx, m.ID, "bob"); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	view, _ = f.msgs.Get(ctx, m.ID, "alice")
	if len(view.LikedBy) != 0 {
		t.Fatalf("expected like removed, got %v", view.LikedBy)
	}
}

func TestToggleSave(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	m := f.send(t, "c1", "alice", "save me")

	if err := f.msgs.ToggleSave(ctx, m.ID, "carol"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-participant, got %v", err)
	}

	if err := f.msgs.ToggleSave(ctx, m.ID, "bob"); err != nil {
		t.Fatalf("ToggleSave failed: %v", err)
	}
	view, err := f.msgs.Get(ctx, m.ID, "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !view.IsSaved {
		t.Fatalf("expected message saved")
	}

	if err := f.msgs.ToggleSave(ctx, m.ID, "bob"); err != nil {
		t.Fatalf("ToggleSave failed: %v", err)
	}
	view, _ = f.msgs.Get(ctx, m.ID, "alice")
	if view.IsSaved {
		t.Fatalf("expected save flag cleared on second toggle")
	}
}

func TestListMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	f.send(t, "c1", "alice", "one")
	f.send(t, "c1", "bob", "two")
	f.send(t, "c1", "alice", "three")

	if _, err := f.msgs.List(ctx, "c1", "carol", 0, 10); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-participant, got %v", err)
	}

	views, err := f.msgs.List(ctx, "c1", "bob", 0, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(views))
	}
	if views[0].Content != "one" || views[1].Content != "two" || views[2].Content != "three" {
		t.Fatalf("expected oldest-first order, got %q %q %q", views[0].Content, views[1].Content, views[2].Content)
	}

	page, err := f.msgs.List(ctx, "c1", "bob", 1, 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 1 || page[0].Content != "two" {
		t.Fatalf("expected page [two], got %+v", page)
	}
}

func TestSendLongContentPreview(t *testing.T) {
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")

	f.send(t, "c1", "alice", strings.Repeat("a", 80))

	conv := f.conversation(t, "c1")
	want := strings.Repeat("a", 50) + "..."
	if conv.LastMessagePreview != want {
		t.Fatalf("expected truncated preview, got %q", conv.LastMessagePreview)
	}
}

func TestReadReceiptsOrderedByReadTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob", "carol")

	m := f.send(t, "c1", "alice", "hello all")
	if err := f.msgs.MarkRead(ctx, m.ID, "carol"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if err := f.msgs.MarkRead(ctx, m.ID, "bob"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	view, err := f.msgs.Get(ctx, m.ID, "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(view.ReadBy) != 3 {
		t.Fatalf("expected 3 receipts, got %d", len(view.ReadBy))
	}
	want := []string{"alice", "carol", "bob"}
	for i, w := range want {
		if view.ReadBy[i].User.ID != w {
			t.Fatalf("expected receipt %d for %s, got %s", i, w, view.ReadBy[i].User.ID)
		}
	}
	for i := 1; i < len(view.ReadBy); i++ {
		if view.ReadBy[i].ReadAt.Before(view.ReadBy[i-1].ReadAt) {
			t.Fatalf("receipts not ordered by read time")
		}
	}
}

func TestUnknownSenderFallsBack(t *testing.T) {
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "ghost")

	view := f.send(t, "c1", "ghost", "boo")
	if view.Sender.Username != fallbackUsername {
		t.Fatalf("expected fallback username, got %q", view.Sender.Username)
	}
}
