package treegp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"treegp/internal/evo"
	"treegp/internal/generator"
	"treegp/internal/model"
	"treegp/internal/problem"
	"treegp/internal/storage"
)

const defaultDBPath = "treegp.db"

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *slog.Logger
	// Registerer receives the evolution metrics; nil disables them.
	Registerer prometheus.Registerer
}

type Client struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *evo.Metrics

	initMu      sync.Mutex
	initialized bool
}

// RunRequest configures one evolution run. Zero values fall back to the
// problem's defaults; the rates are pointers because zero is a valid rate.
type RunRequest struct {
	Problem       string   `yaml:"problem"`
	Population    int      `yaml:"population"`
	Generations   int      `yaml:"generations"`
	MaxDepth      int      `yaml:"max_depth"`
	Seed          int64    `yaml:"seed"`
	MutationRate  *float64 `yaml:"mutation_rate"`
	CrossoverRate *float64 `yaml:"crossover_rate"`

	// Progress, when set, receives every generation report.
	Progress func(evo.GenerationReport) `yaml:"-"`
	// Dump, when set, receives a population dump before and after the run.
	Dump io.Writer `yaml:"-"`
}

type RunSummary struct {
	RunID          string
	Problem        string
	Status         model.RunStatus
	Generations    int
	BestFitness    float64
	AverageFitness float64
	BestSize       int
	BestProgram    string
	BestExpression string
	History        []model.GenerationStats
	Duration       time.Duration
}

type RunsRequest struct {
	Limit int
}

type HistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ProblemItem struct {
	Name     string
	Defaults problem.Defaults
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	client := &Client{store: store, logger: logger}
	if opts.Registerer != nil {
		client.metrics = evo.NewMetrics(opts.Registerer)
	}
	return client, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

// Problems lists the registered problems with their default parameters.
func (c *Client) Problems() ([]ProblemItem, error) {
	names := problem.Names()
	out := make([]ProblemItem, 0, len(names))
	for _, name := range names {
		p, err := problem.New(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ProblemItem{Name: name, Defaults: p.Defaults()})
	}
	return out, nil
}

// Run evolves a population for the requested problem and persists the run
// record and its generation history. A cancelled context still records the
// run as cancelled and returns the summary so far alongside ctx's error.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Problem == "" {
		req.Problem = problem.FunctionSolverName
	}
	prob, err := problem.New(req.Problem)
	if err != nil {
		return RunSummary{}, err
	}
	req = withDefaults(req, prob.Defaults())
	if req.Generations < 0 {
		return RunSummary{}, fmt.Errorf("generations must be >= 0, got %d", req.Generations)
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	logger := c.logger.With(slog.String("run_id", runID), slog.String("problem", prob.Name()))
	record := model.RunRecord{
		VersionedRecord: storage.Versioned(),
		ID:              runID,
		Problem:         prob.Name(),
		Status:          model.RunRunning,
		Seed:            req.Seed,
		PopulationSize:  req.Population,
		MaxDepth:        req.MaxDepth,
		Generations:     req.Generations,
		MutationRate:    *req.MutationRate,
		CrossoverRate:   *req.CrossoverRate,
		StartedAt:       time.Now().UTC(),
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}

	rng := rand.New(rand.NewSource(req.Seed))
	population, err := evo.NewPopulation(evo.Config{
		Catalog:       prob.Catalog(),
		Size:          req.Population,
		MutationRate:  *req.MutationRate,
		CrossoverRate: *req.CrossoverRate,
		Rand:          rng,
		Fitness:       prob.Fitness,
		Logger:        logger,
		Metrics:       c.metrics,
	})
	if err != nil {
		return RunSummary{}, c.fail(ctx, record, err)
	}
	gen, err := generator.New(prob.Catalog(), rng)
	if err != nil {
		return RunSummary{}, c.fail(ctx, record, err)
	}
	if err := population.Initialize(req.MaxDepth, prob.Initializer(gen)); err != nil {
		return RunSummary{}, c.fail(ctx, record, err)
	}

	logger.Info("run started",
		slog.Int64("seed", req.Seed),
		slog.Int("population", req.Population),
		slog.Int("generations", req.Generations),
		slog.Int("max_depth", req.MaxDepth),
	)
	if req.Dump != nil {
		if _, err := population.EvaluateGeneration(ctx); err != nil {
			return RunSummary{}, c.fail(ctx, record, err)
		}
		if err := population.Dump(req.Dump, prob.Printer(), false); err != nil {
			return RunSummary{}, c.fail(ctx, record, err)
		}
	}

	history := make([]model.GenerationStats, 0, req.Generations)
	_, runErr := population.Run(ctx, req.Generations, func(report evo.GenerationReport) {
		history = append(history, model.GenerationStats{
			Generation:       report.Generation,
			BestFitness:      report.BestFitness,
			AverageFitness:   report.AverageFitness,
			BestSize:         report.BestSize,
			Mutations:        report.Mutations,
			Crossovers:       report.Crossovers,
			FailedCrossovers: report.FailedCrossovers,
		})
		if req.Progress != nil {
			req.Progress(report)
		}
	})

	record.FinishedAt = time.Now().UTC()
	record.CompletedGenerations = population.Generation()
	switch {
	case runErr == nil:
		record.Status = model.RunCompleted
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		record.Status = model.RunCancelled
		record.Error = runErr.Error()
	default:
		return RunSummary{}, c.fail(ctx, record, runErr)
	}

	// The run outcome is persisted even when ctx has been cancelled.
	persistCtx := context.WithoutCancel(ctx)
	if !population.Evaluated() {
		if _, err := population.EvaluateGeneration(persistCtx); err != nil {
			return RunSummary{}, c.fail(ctx, record, err)
		}
	}
	best, fitness := population.Best()
	record.BestFitness = fitness
	record.AverageFitness = population.Stats().AverageFitness
	record.BestSize = best.Len()
	record.BestProgram = prob.Printer().String(best)
	record.BestExpression = prob.Compiler().String(best)

	if err := c.store.SaveGenerationHistory(persistCtx, runID, history); err != nil {
		return RunSummary{}, fmt.Errorf("save generation history %s: %w", runID, err)
	}
	if err := c.store.SaveRun(persistCtx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}

	if req.Dump != nil {
		if err := population.Dump(req.Dump, prob.Printer(), false); err != nil {
			return RunSummary{}, err
		}
	}

	summary := RunSummary{
		RunID:          runID,
		Problem:        prob.Name(),
		Status:         record.Status,
		Generations:    record.CompletedGenerations,
		BestFitness:    record.BestFitness,
		AverageFitness: record.AverageFitness,
		BestSize:       record.BestSize,
		BestProgram:    record.BestProgram,
		BestExpression: record.BestExpression,
		History:        history,
		Duration:       record.FinishedAt.Sub(record.StartedAt),
	}
	logger.Info("run finished",
		slog.String("status", string(record.Status)),
		slog.Int("generations", summary.Generations),
		slog.Float64("best_fitness", summary.BestFitness),
		slog.Duration("duration", summary.Duration),
	)
	return summary, runErr
}

func (c *Client) fail(ctx context.Context, record model.RunRecord, cause error) error {
	record.Status = model.RunFailed
	record.Error = cause.Error()
	record.FinishedAt = time.Now().UTC()
	if err := c.store.SaveRun(context.WithoutCancel(ctx), record); err != nil {
		c.logger.Error("persist failed run", slog.String("run_id", record.ID), slog.Any("error", err))
	}
	c.logger.Error("run failed", slog.String("run_id", record.ID), slog.Any("error", cause))
	return fmt.Errorf("run %s: %w", record.ID, cause)
}

func withDefaults(req RunRequest, d problem.Defaults) RunRequest {
	if req.Population <= 0 {
		req.Population = d.PopulationSize
	}
	if req.Generations == 0 {
		req.Generations = d.Generations
	}
	if req.MaxDepth <= 0 {
		req.MaxDepth = d.MaxDepth
	}
	if req.Seed == 0 {
		req.Seed = d.Seed
	}
	if req.MutationRate == nil {
		rate := d.MutationRate
		req.MutationRate = &rate
	}
	if req.CrossoverRate == nil {
		rate := d.CrossoverRate
		req.CrossoverRate = &rate
	}
	return req
}

// Runs lists persisted runs, newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	return runs, nil
}

// RunRecord returns the persisted record of one run.
func (c *Client) RunRecord(ctx context.Context, runID string) (model.RunRecord, error) {
	if err := c.Init(ctx); err != nil {
		return model.RunRecord{}, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	return run, nil
}

// History returns the per-generation statistics of a run.
func (c *Client) History(ctx context.Context, req HistoryRequest) ([]model.GenerationStats, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	runID := req.RunID
	if req.Latest {
		runs, err := c.store.ListRuns(ctx)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, errors.New("no runs available")
		}
		runID = runs[0].ID
	}
	if runID == "" {
		return nil, errors.New("history requires run id or latest")
	}

	history, ok, err := c.store.GetGenerationHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("generation history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return history, nil
}
