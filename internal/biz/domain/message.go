package domain

import "time"

// Message represents a message observed in a monitored chat
type Message struct {
	ChatID     string
	MsgID      string
	SenderID   string
	SenderName string
	Text       string
	CreatedAt  time.Time
}

// ReactionEvent represents an emoji reaction placed on a message.
// ChatID may be empty: some platforms deliver reaction events without a
// chat identity, in which case the buffer registry locates the message.
type ReactionEvent struct {
	ChatID    string
	MsgID     string
	ReactorID string
	Emoji     string
}

// DedupeKey returns the processed-reaction key for this event
func (e *ReactionEvent) DedupeKey(chatID string) string {
	return chatID + "_" + e.MsgID + "_" + e.Emoji
}
