package models

import "time"

// Conversation status values. Deleted conversations stay in the collection
// and are filtered out of every read.
const (
	ConversationActive   = "active"
	ConversationArchived = "archived"
	ConversationDeleted  = "deleted"
)

type Conversation struct {
	ID           string   `bson:"_id" json:"id"`
	Participants []string `bson:"participants" json:"participants"`
	IsGroup      bool     `bson:"is_group" json:"is_group"`
	Title        string   `bson:"title,omitempty" json:"title,omitempty"`
	ImageURL     string   `bson:"image_url,omitempty" json:"image_url,omitempty"`

	// Denormalized cache of the most recent non-deleted message.
	LastMessageID       string    `bson:"last_message_id,omitempty" json:"last_message_id,omitempty"`
	LastMessagePreview  string    `bson:"last_message_preview,omitempty" json:"last_message_preview,omitempty"`
	LastMessageSenderID string    `bson:"last_message_sender_id,omitempty" json:"last_message_sender_id,omitempty"`
	LastActivityAt      time.Time `bson:"last_activity_at" json:"last_activity_at"`

	UnreadCount map[string]int64 `bson:"unread_count" json:"unread_count"`
	MutedBy     map[string]bool  `bson:"muted_by" json:"muted_by"`

	Status   string `bson:"status" json:"status"`
	IsVanish bool   `bson:"is_vanish" json:"is_vanish"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// HasParticipant reports whether userID is a member of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
