package generator

import (
	"context"

	"github.com/avolab/guideline-api/internal/model"
)

// StaticGenerator returns deterministic default payloads without calling any
// backend. It is wired explicitly at startup when no OpenAI API key is
// configured, and by tests. Results carry source "static" so consumers can
// tell the data was never generated.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

func (g *StaticGenerator) Summarize(_ context.Context, _ string) (*model.Summary, error) {
	summary := defaultSummary()
	summary.Source = "static"
	return summary, nil
}

func (g *StaticGenerator) Checklist(_ context.Context, _ *model.Summary) (*model.Checklist, error) {
	checklist := defaultChecklist()
	checklist.Source = "static"
	return checklist, nil
}
