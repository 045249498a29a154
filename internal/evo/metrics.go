package evo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports engine progress to prometheus. A nil *Metrics records nothing.
type Metrics struct {
	generation       prometheus.Gauge
	bestFitness      prometheus.Gauge
	averageFitness   prometheus.Gauge
	evaluations      prometheus.Counter
	mutations        prometheus.Counter
	crossovers       prometheus.Counter
	failedCrossovers prometheus.Counter
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		generation: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "treegp",
			Subsystem: "evolution",
			Name:      "generation",
			Help:      "Number of completed generations.",
		}),
		bestFitness: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "treegp",
			Subsystem: "evolution",
			Name:      "best_fitness",
			Help:      "Best fitness of the last evaluated generation.",
		}),
		averageFitness: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "treegp",
			Subsystem: "evolution",
			Name:      "average_fitness",
			Help:      "Average fitness of the last evaluated generation.",
		}),
		evaluations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "treegp",
			Subsystem: "evolution",
			Name:      "evaluations_total",
			Help:      "Generations scored by the fitness function.",
		}),
		mutations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "treegp",
			Subsystem: "evolution",
			Name:      "mutations_total",
			Help:      "Sub-tree mutations applied.",
		}),
		crossovers: f.NewCounter(prometheus.CounterOpts{
			Namespace: "treegp",
			Subsystem: "evolution",
			Name:      "crossovers_total",
			Help:      "Type-matched sub-tree swaps applied.",
		}),
		failedCrossovers: f.NewCounter(prometheus.CounterOpts{
			Namespace: "treegp",
			Subsystem: "evolution",
			Name:      "crossovers_abandoned_total",
			Help:      "Crossovers abandoned because the partner had no node of the required type.",
		}),
	}
}

func (m *Metrics) observeEvaluation(stats Stats) {
	if m == nil {
		return
	}
	m.evaluations.Inc()
	m.bestFitness.Set(stats.BestFitness)
	m.averageFitness.Set(stats.AverageFitness)
}

func (m *Metrics) observeGeneration(report GenerationReport, generation int) {
	if m == nil {
		return
	}
	m.generation.Set(float64(generation))
	m.mutations.Add(float64(report.Mutations))
	m.crossovers.Add(float64(report.Crossovers))
	m.failedCrossovers.Add(float64(report.FailedCrossovers))
}
