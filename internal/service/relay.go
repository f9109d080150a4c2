package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elliehq/issue-relay/internal/biz/domain"
	"github.com/elliehq/issue-relay/internal/biz/repo"
	"github.com/elliehq/issue-relay/internal/biz/usecase"
)

// RelayService routes inbound platform events through the trigger
// pipeline and delivers outcomes back to requesters. Each reaction is
// handled independently; a failure in one trigger never touches another.
type RelayService struct {
	gate       *usecase.AccessGate
	buffers    *usecase.BufferRegistry
	detector   *usecase.TriggerDetector
	dispatcher repo.WebhookRepo
	notifier   repo.NotifierRepo
	analyzer   repo.AnalyzerRepo
	store      repo.StoreRepo
}

// NewRelayService creates the relay service
func NewRelayService(
	gate *usecase.AccessGate,
	buffers *usecase.BufferRegistry,
	detector *usecase.TriggerDetector,
	dispatcher repo.WebhookRepo,
	analyzer repo.AnalyzerRepo,
	store repo.StoreRepo,
) *RelayService {
	return &RelayService{
		gate:       gate,
		buffers:    buffers,
		detector:   detector,
		dispatcher: dispatcher,
		analyzer:   analyzer,
		store:      store,
	}
}

// SetNotifier sets the private-message sender. The platform adapter
// implements it, and the adapter is constructed after the service.
func (s *RelayService) SetNotifier(notifier repo.NotifierRepo) {
	s.notifier = notifier
}

// HandleMessage ingests a message event into the per-chat buffer.
// Messages from non-whitelisted chats are dropped without side effects.
func (s *RelayService) HandleMessage(ctx context.Context, msg domain.Message) {
	if !s.gate.IsWhitelistedChat(msg.ChatID) {
		return
	}
	s.buffers.Append(msg)
}

// HandleReaction runs the full trigger pipeline for one reaction event:
// detection, optional pre-analysis, signed dispatch, outcome delivery.
// Adapters call it from a per-event goroutine.
func (s *RelayService) HandleReaction(ctx context.Context, ev domain.ReactionEvent) {
	bundle, err := s.detector.Evaluate(ctx, ev)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAccessDenied), errors.Is(err, usecase.ErrDuplicate):
			// Silent: no user-visible effect, the whitelist must not leak
		case errors.Is(err, usecase.ErrUnknownMessage):
			fmt.Printf("[Relay] Trigger message %s unknown, ignoring\n", ev.MsgID)
		case errors.Is(err, usecase.ErrRateLimited):
			fmt.Printf("[Relay] Rate limit exceeded for user %s\n", ev.ReactorID)
			s.notify(ctx, ev.ReactorID, "⏳ You have hit the rate limit. Please wait a minute before flagging again.")
		case errors.Is(err, usecase.ErrEmptyContext):
			s.notify(ctx, ev.ReactorID, "❌ No conversation context was available for that message.")
		default:
			fmt.Printf("[Relay] Trigger evaluation error: %v\n", err)
		}
		return
	}

	fmt.Printf("[Relay] Trigger accepted: correlation=%s chat=%s messages=%d stale=%v\n",
		bundle.CorrelationID, bundle.OriginChatID, len(bundle.Messages), bundle.StaleTrigger)

	if s.analyzer != nil {
		summary, err := s.analyzer.Summarize(ctx, bundle)
		if err != nil {
			// Pre-analysis is best-effort; the automation service can
			// work from the raw context
			fmt.Printf("[Relay] Pre-analysis failed: %v\n", err)
		} else {
			bundle.Analysis = summary
		}
	}

	outcome := s.dispatcher.Dispatch(ctx, bundle)
	s.recordDispatch(ctx, bundle, outcome)
	s.Deliver(ctx, bundle.RequesterID, bundle.OriginChatID, outcome)
}

func (s *RelayService) recordDispatch(ctx context.Context, bundle *domain.ContextBundle, outcome domain.DispatchOutcome) {
	if s.store == nil {
		return
	}
	rec := &domain.DispatchRecord{
		CorrelationID: bundle.CorrelationID,
		RequesterID:   bundle.RequesterID,
		OriginChatID:  bundle.OriginChatID,
		Status:        outcome.Status,
		Attempts:      outcome.Attempts,
		CreatedAt:     time.Now(),
	}
	if err := s.store.RecordDispatch(ctx, rec); err != nil {
		fmt.Printf("[Relay] Failed to record dispatch %s: %v\n", bundle.CorrelationID, err)
	}
}

// Deliver sends the dispatch outcome privately to the requester. It
// never posts into the origin chat; delivery failures are logged and
// swallowed.
func (s *RelayService) Deliver(ctx context.Context, requesterID, originChatID string, outcome domain.DispatchOutcome) {
	var text string
	switch {
	case outcome.Status == domain.DispatchSucceeded && outcome.TicketRef != "":
		text = fmt.Sprintf("✅ Issue filed: %s. Thanks for flagging this.", outcome.TicketRef)
	case outcome.Status == domain.DispatchSucceeded && outcome.NoIssue:
		text = "ℹ️ The context was analyzed but no issue was identified."
	case outcome.Status == domain.DispatchSucceeded:
		text = "✅ Context sent for analysis. Thanks for flagging this."
	case outcome.Failure == domain.FailureWebhookUnreachable:
		text = "❌ Could not reach the issue service. Please try again in a few minutes."
	default:
		text = "❌ The issue service could not process the request. Please try again or flag the message once more."
	}
	s.notify(ctx, requesterID, text)
}

func (s *RelayService) notify(ctx context.Context, userID, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendPrivate(ctx, userID, text); err != nil {
		// The user may have private messages disabled; never fall back
		// to the group chat
		fmt.Printf("[Relay] Failed to DM user %s: %v\n", userID, err)
	}
}

// StartCleanupLoop periodically prunes old store entries until the
// context is canceled
func (s *RelayService) StartCleanupLoop(ctx context.Context, interval, retention time.Duration) {
	if s.store == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.store.CleanupOld(ctx, time.Now().Add(-retention))
				if err != nil {
					fmt.Printf("[Relay] Store cleanup failed: %v\n", err)
					continue
				}
				if n > 0 {
					fmt.Printf("[Relay] Store cleanup removed %d entries\n", n)
				}
			}
		}
	}()
}
