package evo

import (
	"context"
	"fmt"
	"io"

	"treegp/internal/render"
)

type Stats struct {
	// Generation is the generation the fitnesses were computed for, -1 before
	// any evaluation.
	Generation     int     `json:"generation"`
	AverageFitness float64 `json:"average_fitness"`
	BestFitness    float64 `json:"best_fitness"`
	BestIndex      int     `json:"best_index"`
}

// Stats summarises the last evaluation without triggering a new one.
func (p *Population) Stats() Stats {
	stats := Stats{Generation: p.evaluatedGeneration}
	if len(p.fitnesses) == 0 {
		return stats
	}
	stats.BestFitness = p.fitnesses[0]
	total := 0.0
	for i, fitness := range p.fitnesses {
		total += fitness
		if fitness > stats.BestFitness {
			stats.BestFitness = fitness
			stats.BestIndex = i
		}
	}
	stats.AverageFitness = total / float64(len(p.fitnesses))
	return stats
}

// Run advances the population by generations steps, checking ctx between
// steps, and evaluates the final generation. observe may be nil.
func (p *Population) Run(ctx context.Context, generations int, observe func(GenerationReport)) (Stats, error) {
	if generations < 0 {
		return Stats{}, fmt.Errorf("%w: generations must be >= 0, got %d", ErrContract, generations)
	}
	for gen := 0; gen < generations; gen++ {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		report, err := p.NextGeneration(ctx)
		if err != nil {
			return Stats{}, err
		}
		if observe != nil {
			observe(report)
		}
	}
	if _, err := p.EvaluateGeneration(ctx); err != nil {
		return Stats{}, err
	}
	return p.Stats(), nil
}

// Dump writes the last evaluation's statistics and best individual, and every
// individual when all is set.
func (p *Population) Dump(w io.Writer, printer *render.Printer, all bool) error {
	stats := p.Stats()
	if _, err := fmt.Fprintf(w, "-----\nGeneration:\t%d\nAverage fitness:\t%g\nBest fitness:\t%g\n",
		p.generation, stats.AverageFitness, stats.BestFitness); err != nil {
		return err
	}
	if len(p.individuals) > 0 {
		if _, err := fmt.Fprintf(w, "Best individual:\t%s\n", printer.String(p.individuals[stats.BestIndex])); err != nil {
			return err
		}
	}
	if all {
		for i, tree := range p.individuals {
			if _, err := fmt.Fprintf(w, "\t#%d:\t%s\n", i, printer.String(tree)); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "-----\n")
	return err
}
