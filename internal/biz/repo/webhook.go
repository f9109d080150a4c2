package repo

import (
	"context"

	"github.com/elliehq/issue-relay/internal/biz/domain"
)

// WebhookRepo dispatches context bundles to the external automation
// service. Failures are encoded in the outcome, never raised as errors:
// the dispatcher owns retry and classification.
type WebhookRepo interface {
	Dispatch(ctx context.Context, bundle *domain.ContextBundle) domain.DispatchOutcome
}
