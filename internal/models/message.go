package models

import "time"

// Message types. Anything other than text counts as media for the
// media-listing query.
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageVideo = "video"
	MessageAudio = "audio"
	MessageFile  = "file"
)

// Media describes one attachment carried by a message. The bytes live in
// object storage; messages only hold descriptors.
type Media struct {
	Type         string  `bson:"type" json:"type"`
	URL          string  `bson:"url" json:"url"`
	ThumbnailURL string  `bson:"thumbnail_url,omitempty" json:"thumbnail_url,omitempty"`
	Filename     string  `bson:"filename,omitempty" json:"filename,omitempty"`
	Size         int64   `bson:"size,omitempty" json:"size,omitempty"`
	Width        int     `bson:"width,omitempty" json:"width,omitempty"`
	Height       int     `bson:"height,omitempty" json:"height,omitempty"`
	Duration     float64 `bson:"duration,omitempty" json:"duration,omitempty"`
}

type Message struct {
	ID             string  `bson:"_id" json:"id"`
	ConversationID string  `bson:"conversation_id" json:"conversation_id"`
	SenderID       string  `bson:"sender_id" json:"sender_id"`
	Content        string  `bson:"content" json:"content"`
	MessageType    string  `bson:"message_type" json:"message_type"`
	Media          []Media `bson:"media,omitempty" json:"media,omitempty"`
	ReplyToID      string  `bson:"reply_to_message_id,omitempty" json:"reply_to_message_id,omitempty"`

	// ReadBy maps user id to the instant of first read. The sender is
	// entered at creation time.
	ReadBy  map[string]time.Time `bson:"read_by" json:"read_by"`
	LikedBy []string             `bson:"liked_by" json:"liked_by"`

	IsSaved   bool       `bson:"is_saved" json:"is_saved"`
	IsEdited  bool       `bson:"is_edited" json:"is_edited"`
	EditedAt  *time.Time `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
	IsDeleted bool       `bson:"is_deleted" json:"is_deleted"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ReadByUser reports whether userID has read the message.
func (m *Message) ReadByUser(userID string) bool {
	_, ok := m.ReadBy[userID]
	return ok
}

// LikedByUser reports whether userID currently likes the message.
func (m *Message) LikedByUser(userID string) bool {
	for _, u := range m.LikedBy {
		if u == userID {
			return true
		}
	}
	return false
}

// IsMedia reports whether the message carries an attachment type.
func (m *Message) IsMedia() bool {
	switch m.MessageType {
	case MessageImage, MessageVideo, MessageAudio, MessageFile:
		return true
	}
	return false
}
