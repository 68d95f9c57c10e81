package models

import "time"

// Reaction is a single user's reaction to a single message. At most one
// live reaction exists per (message, user) pair; reacting again with a
// different type overwrites it in place.
type Reaction struct {
	ID        string    `bson:"_id" json:"id"`
	MessageID string    `bson:"message_id" json:"message_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Type      string    `bson:"reaction_type" json:"reaction_type"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
