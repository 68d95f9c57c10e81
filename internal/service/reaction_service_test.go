package service

import (
	"context"
	"errors"
	"testing"
)

func TestReactionToggleCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")
	m := f.send(t, "c1", "alice", "react to me")

	// first reaction creates
	view, err := f.reactions.Add(ctx, AddReactionInput{MessageID: m.ID, Type: "thumbsup"}, "bob")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if view == nil || view.Type != "thumbsup" || view.User.ID != "bob" {
		t.Fatalf("expected thumbsup view for bob, got %+v", view)
	}

	// same type again toggles off
	view, err = f.reactions.Add(ctx, AddReactionInput{MessageID: m.ID, Type: "thumbsup"}, "bob")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if view != nil {
		t.Fatalf("expected nil view on toggle-off, got %+v", view)
	}
	list, err := f.reactions.List(ctx, m.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no reactions after toggle-off, got %d", len(list))
	}

	// different type replaces in place
	if _, err := f.reactions.Add(ctx, AddReactionInput{MessageID: m.ID, Type: "thumbsup"}, "bob"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	view, err = f.reactions.Add(ctx, AddReactionInput{MessageID: m.ID, Type: "heart"}, "bob")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if view == nil || view.Type != "heart" {
		t.Fatalf("expected replacement with heart, got %+v", view)
	}
	list, _ = f.reactions.List(ctx, m.ID)
	if len(list) != 1 || list[0].Type != "heart" {
		t.Fatalf("expected single heart reaction, got %+v", list)
	}
}

func TestReactionAtMostOnePerUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")
	m := f.send(t, "c1", "alice", "hello")

	if _, err := f.reactions.Add(ctx, AddReactionInput{MessageID: m.ID, Type: "thumbsup"}, "alice"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := f.reactions.Add(ctx, AddReactionInput{MessageID: m.ID, Type: "thumbsup"}, "bob"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := f.reactions.Add(ctx, AddReactionInput{MessageID: m.ID, Type: "heart"}, "alice"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	list, err := f.reactions.List(ctx, m.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected one reaction per user, got %d", len(list))
	}
}

func TestReactionAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")
	m := f.send(t, "c1", "alice", "hello")

	_, err := f.reactions.Add(ctx, AddReactionInput{MessageID: m.ID, Type: "thumbsup"}, "carol")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-participant, got %v", err)
	}

	_, err = f.reactions.Add(ctx, AddReactionInput{MessageID: "missing", Type: "thumbsup"}, "alice")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing message, got %v", err)
	}

	_, err = f.reactions.Add(ctx, AddReactionInput{MessageID: m.ID}, "alice")
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for empty type, got %v", err)
	}

	if _, err := f.reactions.List(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound listing missing message, got %v", err)
	}
}

func TestRemoveReactionIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedConversation(t, "c1", "alice", "bob")
	m := f.send(t, "c1", "alice", "hello")

	if _, err := f.reactions.Add(ctx, AddReactionInput{MessageID: m.ID, Type: "thumbsup"}, "bob"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := f.reactions.Remove(ctx, m.ID, "bob"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	// removing again is a no-op
	if err := f.reactions.Remove(ctx, m.ID, "bob"); err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}

	list, err := f.reactions.List(ctx, m.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no reactions, got %d", len(list))
	}
}
