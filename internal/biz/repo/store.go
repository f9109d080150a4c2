package repo

import (
	"context"
	"time"

	"github.com/elliehq/issue-relay/internal/biz/domain"
)

// StoreStats summarizes store contents
type StoreStats struct {
	ProcessedReactions int
	Dispatches         int
}

// StoreRepo persists processed-reaction keys and dispatch records so a
// restart or a reaction edit does not re-dispatch the same trigger.
type StoreRepo interface {
	// MarkReactionProcessed records a reaction key. Returns false if the
	// key was already present (the reaction has been handled before).
	MarkReactionProcessed(ctx context.Context, key, chatID, msgID, userID, emoji string) (bool, error)

	// IsReactionProcessed reports whether a reaction key is recorded
	IsReactionProcessed(ctx context.Context, key string) (bool, error)

	// RecordDispatch upserts a dispatch record
	RecordDispatch(ctx context.Context, rec *domain.DispatchRecord) error

	// CleanupOld removes entries older than the cutoff, returning the
	// number of rows deleted
	CleanupOld(ctx context.Context, before time.Time) (int64, error)

	// Stats returns store statistics
	Stats(ctx context.Context) (*StoreStats, error)

	// Close closes the store
	Close() error
}
