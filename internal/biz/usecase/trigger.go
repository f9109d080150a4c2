package usecase

import (
	"context"
	"fmt"

	"github.com/elliehq/issue-relay/internal/biz/domain"
	"github.com/elliehq/issue-relay/internal/biz/repo"
)

// TriggerDetector decides whether a reaction event starts a dispatch.
// It holds no state of its own: every event is evaluated independently,
// so concurrent triggers never interfere.
type TriggerDetector struct {
	gate      *AccessGate
	buffers   *BufferRegistry
	limiter   *RateLimiter
	assembler *Assembler
	store     repo.StoreRepo
	maxSize   int
}

// NewTriggerDetector creates a trigger detector
func NewTriggerDetector(
	gate *AccessGate,
	buffers *BufferRegistry,
	limiter *RateLimiter,
	assembler *Assembler,
	store repo.StoreRepo,
	maxContextMessages int,
) *TriggerDetector {
	if maxContextMessages <= 0 {
		maxContextMessages = DefaultBufferConfig().Capacity
	}
	return &TriggerDetector{
		gate:      gate,
		buffers:   buffers,
		limiter:   limiter,
		assembler: assembler,
		store:     store,
		maxSize:   maxContextMessages,
	}
}

// Evaluate runs the trigger state machine for one reaction event and
// returns the assembled bundle on acceptance. Rejections come back as
// the sentinel errors in errors.go; the caller decides which of them
// warrant a private notice.
func (d *TriggerDetector) Evaluate(ctx context.Context, ev domain.ReactionEvent) (*domain.ContextBundle, error) {
	if !d.gate.IsTriggerEmoji(ev.Emoji) {
		return nil, ErrAccessDenied
	}

	// Resolve the chat without ever querying the platform: either the
	// event carries it, or the buffers locate the message.
	chatID := ev.ChatID
	if chatID == "" {
		located, ok := d.buffers.Locate(ev.MsgID)
		if !ok {
			return nil, ErrUnknownMessage
		}
		chatID = located
	}

	if !d.gate.IsWhitelistedChat(chatID) {
		return nil, ErrAccessDenied
	}
	if !d.gate.IsWhitelistedUser(ev.ReactorID) {
		return nil, ErrAccessDenied
	}

	if d.buffers.Len(chatID) == 0 {
		// Nothing ever ingested for this chat: nothing to assemble. An
		// evicted trigger message is not rejected here; it yields a
		// stale bundle below.
		return nil, ErrUnknownMessage
	}

	if d.store != nil {
		processed, err := d.store.IsReactionProcessed(ctx, ev.DedupeKey(chatID))
		if err != nil {
			return nil, fmt.Errorf("check reaction processed: %w", err)
		}
		if processed {
			return nil, ErrDuplicate
		}
	}

	if !d.limiter.TryAdmit(ev.ReactorID) {
		return nil, ErrRateLimited
	}

	if d.store != nil {
		// Recorded only after admission so a rate-limited attempt can be
		// retried once the window clears
		inserted, err := d.store.MarkReactionProcessed(ctx, ev.DedupeKey(chatID), chatID, ev.MsgID, ev.ReactorID, ev.Emoji)
		if err != nil {
			return nil, fmt.Errorf("mark reaction processed: %w", err)
		}
		if !inserted {
			return nil, ErrDuplicate
		}
	}

	snapshot, found := d.buffers.Snapshot(chatID, ev.MsgID, d.maxSize)
	bundle, err := d.assembler.Assemble(snapshot, ev.ReactorID, chatID, ev.MsgID, !found)
	if err != nil {
		return nil, err
	}
	return bundle, nil
}
