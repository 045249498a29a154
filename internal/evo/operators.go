package evo

import (
	"context"
	"fmt"
	"log/slog"

	"treegp/internal/genome"
	"treegp/internal/grammar"
)

// GenerationReport summarises one NextGeneration step.
type GenerationReport struct {
	Generation       int     `json:"generation"`
	BestFitness      float64 `json:"best_fitness"`
	AverageFitness   float64 `json:"average_fitness"`
	BestIndex        int     `json:"best_index"`
	BestSize         int     `json:"best_size"`
	Mutations        int     `json:"mutations"`
	Crossovers       int     `json:"crossovers"`
	FailedCrossovers int     `json:"failed_crossovers"`
}

// Select appends count tournament winners to buf. Each winner is the fittest
// of TournamentSize individuals sampled uniformly with replacement, the
// earliest sample winning ties; buf receives copies.
func (p *Population) Select(buf []*genome.Tree, count int) ([]*genome.Tree, error) {
	n := len(p.individuals)
	if n == 0 {
		return buf, fmt.Errorf("%w: select from an empty population", ErrContract)
	}
	if count <= 0 || count > n {
		return buf, fmt.Errorf("%w: select count must be in [1, %d], got %d", ErrContract, n, count)
	}
	for i := 0; i < count; i++ {
		buf = append(buf, p.individuals[p.tournament()].Clone())
	}
	return buf, nil
}

func (p *Population) tournament() int {
	n := len(p.individuals)
	winner := p.cfg.Rand.Intn(n)
	for j := 1; j < TournamentSize; j++ {
		contestant := p.cfg.Rand.Intn(n)
		if p.fitnesses[contestant] > p.fitnesses[winner] {
			winner = contestant
		}
	}
	return winner
}

func (p *Population) randomNode(tree *genome.Tree) int {
	return p.cfg.Rand.Intn(tree.Len())
}

// mutate regrows the sub-tree at a random node with a random tree of the same type.
func (p *Population) mutate(tree *genome.Tree) {
	id := p.randomNode(tree)
	typ := p.cfg.Catalog.TypeOf(tree.Node(id).Value())
	tree.Replace(id, p.cfg.RandomTree(typ))
}

// randomNodeOfType picks uniformly among the nodes of tree whose type is typ.
func (p *Population) randomNodeOfType(tree *genome.Tree, typ grammar.TypeID) (int, bool) {
	var candidates []int
	for id := 0; id < tree.Len(); id++ {
		if p.cfg.Catalog.TypeOf(tree.Node(id).Value()) == typ {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[p.cfg.Rand.Intn(len(candidates))], true
}

// crossover swaps the sub-tree at id in a with a random sub-tree of the same
// type in b. It reports false, leaving both trees untouched, when b has no
// node of that type.
func (p *Population) crossover(a *genome.Tree, id int, typ grammar.TypeID, b *genome.Tree) bool {
	j, ok := p.randomNodeOfType(b, typ)
	if !ok {
		return false
	}
	x, y := a.SubTree(id), b.SubTree(j)
	a.Replace(id, y)
	b.Replace(j, x)
	return true
}

// NextGeneration breeds the next generation:
//   - two copies of the current best open the buffer and may be varied,
//   - tournament selection fills it up to Size-1,
//   - each slot is mutated, crossed with its successor, or kept,
//   - one untouched copy of the best closes it.
func (p *Population) NextGeneration(ctx context.Context) (GenerationReport, error) {
	best, err := p.EvaluateGeneration(ctx)
	if err != nil {
		return GenerationReport{}, err
	}
	stats := p.Stats()
	report := GenerationReport{
		Generation:     p.generation,
		BestFitness:    stats.BestFitness,
		AverageFitness: stats.AverageFitness,
		BestIndex:      best,
		BestSize:       p.individuals[best].Len(),
	}

	next := make([]*genome.Tree, 0, p.cfg.Size)
	next = append(next, p.individuals[best].Clone(), p.individuals[best].Clone())
	next, err = p.Select(next, p.cfg.Size-3)
	if err != nil {
		return GenerationReport{}, err
	}

	for i := 0; i < len(next); i++ {
		draw := p.cfg.Rand.Float64()
		switch {
		case draw <= p.cfg.MutationRate:
			p.mutate(next[i])
			report.Mutations++
		case draw <= p.cfg.MutationRate+p.cfg.CrossoverRate:
			partner := i + 1
			if partner == len(next) {
				partner = p.cfg.Rand.Intn(len(next))
			}
			if partner == i {
				partner = i - 1
			}
			id := p.randomNode(next[i])
			typ := p.cfg.Catalog.TypeOf(next[i].Node(id).Value())
			if !p.crossover(next[i], id, typ, next[partner]) {
				report.FailedCrossovers++
				p.cfg.Logger.Debug("crossover abandoned: partner has no node of the requested type",
					slog.Int("generation", p.generation),
					slog.Int("slot", i),
					slog.Int("partner", partner),
					slog.String("type", p.cfg.Catalog.TypeName(typ)),
				)
				continue
			}
			report.Crossovers++
			// The partner slot has been consumed.
			i++
		}
	}
	next = append(next, p.individuals[best].Clone())

	p.individuals = next
	p.generation++
	p.cfg.Metrics.observeGeneration(report, p.generation)
	return report, nil
}
