package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/elliehq/issue-relay/internal/biz/domain"
	"github.com/elliehq/issue-relay/internal/biz/repo"
)

type mockStore struct {
	keys map[string]bool
}

func newMockStore() *mockStore {
	return &mockStore{keys: make(map[string]bool)}
}

func (m *mockStore) MarkReactionProcessed(ctx context.Context, key, chatID, msgID, userID, emoji string) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockStore) IsReactionProcessed(ctx context.Context, key string) (bool, error) {
	return m.keys[key], nil
}

func (m *mockStore) RecordDispatch(ctx context.Context, rec *domain.DispatchRecord) error {
	return nil
}

func (m *mockStore) CleanupOld(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (m *mockStore) Stats(ctx context.Context) (*repo.StoreStats, error) {
	return &repo.StoreStats{ProcessedReactions: len(m.keys)}, nil
}

func (m *mockStore) Close() error { return nil }

func newDetector(store repo.StoreRepo) (*TriggerDetector, *BufferRegistry) {
	gate := NewAccessGate([]string{"c1"}, []string{"u1"}, []string{"👍"})
	buffers := NewBufferRegistry(BufferConfig{Capacity: 25, MinMessageLen: 1})
	limiter := NewRateLimiter(DefaultRateLimitConfig())
	assembler := NewAssembler(AssemblerConfig{Anonymize: true})
	return NewTriggerDetector(gate, buffers, limiter, assembler, store, 25), buffers
}

func TestTriggerAccepted(t *testing.T) {
	detector, buffers := newDetector(newMockStore())
	for n := 1; n <= 5; n++ {
		buffers.Append(makeMessage("c1", n))
	}

	bundle, err := detector.Evaluate(context.Background(), domain.ReactionEvent{
		ChatID: "c1", MsgID: "m3", ReactorID: "u1", Emoji: "👍",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(bundle.Messages) != 5 {
		t.Errorf("Expected 5 context messages, got %d", len(bundle.Messages))
	}
	if bundle.StaleTrigger {
		t.Error("Expected fresh trigger")
	}
	if bundle.OriginChatID != "c1" || bundle.TriggerMsgID != "m3" || bundle.RequesterID != "u1" {
		t.Errorf("Bundle identity wrong: %+v", bundle)
	}
}

func TestTriggerAccessIsolation(t *testing.T) {
	detector, buffers := newDetector(newMockStore())
	buffers.Append(makeMessage("c1", 1))
	buffers.Append(makeMessage("c2", 2))

	cases := []struct {
		name string
		ev   domain.ReactionEvent
	}{
		{"non-whitelisted chat", domain.ReactionEvent{ChatID: "c2", MsgID: "m2", ReactorID: "u1", Emoji: "👍"}},
		{"non-whitelisted user", domain.ReactionEvent{ChatID: "c1", MsgID: "m1", ReactorID: "intruder", Emoji: "👍"}},
		{"unrecognized emoji", domain.ReactionEvent{ChatID: "c1", MsgID: "m1", ReactorID: "u1", Emoji: "🎉"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := detector.Evaluate(context.Background(), tc.ev); !errors.Is(err, ErrAccessDenied) {
				t.Errorf("Expected ErrAccessDenied, got %v", err)
			}
		})
	}
}

func TestTriggerUnknownMessage(t *testing.T) {
	detector, _ := newDetector(newMockStore())

	// Nothing ingested for c1 at all
	_, err := detector.Evaluate(context.Background(), domain.ReactionEvent{
		ChatID: "c1", MsgID: "m1", ReactorID: "u1", Emoji: "👍",
	})
	if !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("Expected ErrUnknownMessage, got %v", err)
	}
}

func TestTriggerLocatesChatlessReaction(t *testing.T) {
	detector, buffers := newDetector(newMockStore())
	buffers.Append(makeMessage("c1", 1))

	bundle, err := detector.Evaluate(context.Background(), domain.ReactionEvent{
		MsgID: "m1", ReactorID: "u1", Emoji: "👍",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if bundle.OriginChatID != "c1" {
		t.Errorf("Expected chat located as c1, got %s", bundle.OriginChatID)
	}
}

func TestTriggerEvictedMessageIsStale(t *testing.T) {
	gate := NewAccessGate([]string{"c1"}, []string{"u1"}, []string{"👍"})
	buffers := NewBufferRegistry(BufferConfig{Capacity: 3, MinMessageLen: 1})
	limiter := NewRateLimiter(DefaultRateLimitConfig())
	assembler := NewAssembler(AssemblerConfig{Anonymize: true})
	detector := NewTriggerDetector(gate, buffers, limiter, assembler, newMockStore(), 3)

	for n := 1; n <= 6; n++ {
		buffers.Append(makeMessage("c1", n))
	}

	bundle, err := detector.Evaluate(context.Background(), domain.ReactionEvent{
		ChatID: "c1", MsgID: "m1", ReactorID: "u1", Emoji: "👍",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !bundle.StaleTrigger {
		t.Error("Expected stale trigger for evicted message")
	}
	if len(bundle.Messages) != 3 {
		t.Errorf("Expected most recent 3 messages, got %d", len(bundle.Messages))
	}
}

func TestTriggerDeduplicated(t *testing.T) {
	detector, buffers := newDetector(newMockStore())
	buffers.Append(makeMessage("c1", 1))

	ev := domain.ReactionEvent{ChatID: "c1", MsgID: "m1", ReactorID: "u1", Emoji: "👍"}
	if _, err := detector.Evaluate(context.Background(), ev); err != nil {
		t.Fatalf("First evaluation failed: %v", err)
	}
	if _, err := detector.Evaluate(context.Background(), ev); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestTriggerRateLimited(t *testing.T) {
	gate := NewAccessGate([]string{"c1"}, []string{"u1"}, []string{"👍"})
	buffers := NewBufferRegistry(BufferConfig{Capacity: 25, MinMessageLen: 1})
	limiter := NewRateLimiter(RateLimitConfig{MaxRequests: 2, Window: time.Minute})
	assembler := NewAssembler(AssemblerConfig{Anonymize: true})
	store := newMockStore()
	detector := NewTriggerDetector(gate, buffers, limiter, assembler, store, 25)

	for n := 1; n <= 3; n++ {
		buffers.Append(makeMessage("c1", n))
	}

	for n := 1; n <= 2; n++ {
		ev := domain.ReactionEvent{ChatID: "c1", MsgID: makeMessage("c1", n).MsgID, ReactorID: "u1", Emoji: "👍"}
		if _, err := detector.Evaluate(context.Background(), ev); err != nil {
			t.Fatalf("Evaluation %d failed: %v", n, err)
		}
	}

	ev := domain.ReactionEvent{ChatID: "c1", MsgID: "m3", ReactorID: "u1", Emoji: "👍"}
	if _, err := detector.Evaluate(context.Background(), ev); !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}

	// The denied reaction was not marked processed and may be retried
	processed, _ := store.IsReactionProcessed(context.Background(), ev.DedupeKey("c1"))
	if processed {
		t.Error("Denied attempt must not be recorded as processed")
	}
}
