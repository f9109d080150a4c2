package repo

import "context"

// NotifierRepo delivers private messages to users on the chat platform.
// Delivery is fire-and-forget from the relay's perspective: failures are
// surfaced as errors but must never be retried indefinitely.
type NotifierRepo interface {
	// SendPrivate sends a direct message to a user. Never posts into a
	// group chat.
	SendPrivate(ctx context.Context, userID, text string) error
}
