// Package generator provides the text-generation capability consumed by the
// guideline pipeline: a summary of a guideline document, then a checklist
// derived from that summary.
package generator

import (
	"context"

	"github.com/avolab/guideline-api/internal/model"
)

// TextGenerator is the two-stage generation capability. A returned error
// means the stage failed and the job should fail; output that arrives but
// cannot be parsed is degraded to a default payload inside the
// implementation instead (logged at error level).
type TextGenerator interface {
	// Summarize produces a structured summary of guidelineText. An empty
	// guidelineText summarizes the canonical default guideline document.
	Summarize(ctx context.Context, guidelineText string) (*model.Summary, error)

	// Checklist produces a structured checklist from a summary.
	Checklist(ctx context.Context, summary *model.Summary) (*model.Checklist, error)
}
