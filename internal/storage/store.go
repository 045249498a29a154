package storage

import (
	"context"

	"treegp/internal/model"
)

// Store persists evolution run records and their per-generation history.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns every run, most recently started first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveGenerationHistory(ctx context.Context, runID string, history []model.GenerationStats) error
	GetGenerationHistory(ctx context.Context, runID string) ([]model.GenerationStats, bool, error)
}
