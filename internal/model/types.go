package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// RunRecord describes one evolution run: its parameters and final outcome.
// Genomes themselves are not persisted; the best program is kept as text.
type RunRecord struct {
	VersionedRecord
	ID             string    `json:"id"`
	Problem        string    `json:"problem"`
	Status         RunStatus `json:"status"`
	Error          string    `json:"error,omitempty"`
	Seed           int64     `json:"seed"`
	PopulationSize int       `json:"population_size"`
	MaxDepth       int       `json:"max_depth"`
	Generations    int       `json:"generations"`
	MutationRate   float64   `json:"mutation_rate"`
	CrossoverRate  float64   `json:"crossover_rate"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitempty"`

	CompletedGenerations int     `json:"completed_generations"`
	BestFitness          float64 `json:"best_fitness"`
	AverageFitness       float64 `json:"average_fitness"`
	BestSize             int     `json:"best_size"`
	BestProgram          string  `json:"best_program,omitempty"`
	BestExpression       string  `json:"best_expression,omitempty"`
}

// GenerationStats is the per-generation history row of a run.
type GenerationStats struct {
	Generation       int     `json:"generation"`
	BestFitness      float64 `json:"best_fitness"`
	AverageFitness   float64 `json:"average_fitness"`
	BestSize         int     `json:"best_size"`
	Mutations        int     `json:"mutations"`
	Crossovers       int     `json:"crossovers"`
	FailedCrossovers int     `json:"failed_crossovers"`
}
