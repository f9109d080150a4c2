package repo

import (
	"context"

	"github.com/elliehq/issue-relay/internal/biz/domain"
)

// AnalyzerRepo is the optional pre-analysis interface. When no analyzer
// is configured the repo is nil and the automation service behind the
// webhook does all the analysis.
type AnalyzerRepo interface {
	// Summarize produces a short issue summary of the bundle's context
	Summarize(ctx context.Context, bundle *domain.ContextBundle) (string, error)
}
