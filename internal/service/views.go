package service

import (
	"time"

	"github.com/fathima-sithara/conversation-service/internal/models"
)

// Fallback display values used when the user service cannot resolve a
// participant.
const (
	fallbackUsername   = "Unknown User"
	fallbackGroupTitle = "Group Conversation"
	fallbackGroupImage = "/static/images/group-default.png"
)

// MessageView is the outward shape of a message: sender, reply target,
// read receipts and reactions resolved for display.
type MessageView struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	Sender         *models.MinimalUser `json:"sender"`
	Content        string              `json:"content"`
	MessageType    string              `json:"message_type"`
	Media          []models.Media      `json:"media,omitempty"`
	ReplyTo        *ReplyPreview       `json:"reply_to,omitempty"`
	ReadBy         []ReadReceipt       `json:"read_by"`
	LikedBy        []string            `json:"liked_by"`
	IsSaved        bool                `json:"is_saved"`
	IsEdited       bool                `json:"is_edited"`
	EditedAt       *time.Time          `json:"edited_at,omitempty"`
	Reactions      []ReactionView      `json:"reactions"`
	CreatedAt      time.Time           `json:"created_at"`
}

// ReplyPreview summarizes the message a reply points at.
type ReplyPreview struct {
	ID      string              `json:"id"`
	Content string              `json:"content"`
	Sender  *models.MinimalUser `json:"sender"`
}

type ReadReceipt struct {
	User   *models.MinimalUser `json:"user"`
	ReadAt time.Time           `json:"read_at"`
}

type ReactionView struct {
	ID        string              `json:"id"`
	MessageID string              `json:"message_id"`
	Type      string              `json:"reaction_type"`
	User      *models.MinimalUser `json:"user"`
	CreatedAt time.Time           `json:"created_at"`
}

// ConversationView is the outward shape of a conversation for one
// requesting user: title/image derived for direct chats, unread and mute
// state read from the per-user maps.
type ConversationView struct {
	ID                 string                `json:"id"`
	Participants       []*models.MinimalUser `json:"participants"`
	IsGroup            bool                  `json:"is_group"`
	Title              string                `json:"title"`
	ImageURL           string                `json:"image_url,omitempty"`
	LastMessageID      string                `json:"last_message_id,omitempty"`
	LastMessagePreview string                `json:"last_message_preview,omitempty"`
	LastMessageSender  string                `json:"last_message_sender_id,omitempty"`
	LastActivityAt     time.Time             `json:"last_activity_at"`
	UnreadCount        int64                 `json:"unread_count"`
	IsMuted            bool                  `json:"is_muted"`
	Status             string                `json:"status"`
	IsVanish           bool                  `json:"is_vanish"`
}
