package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"treegp/pkg/treegp"
)

// runFlags mirrors the run command's flags. Values only override the config
// file when the flag was set explicitly.
type runFlags struct {
	configPath    string
	problem       string
	population    int
	generations   int
	maxDepth      int
	seed          int64
	mutationRate  float64
	crossoverRate float64
}

func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML run config file")
	fs.StringVar(&f.problem, "problem", "", "problem name, see the problems command")
	fs.IntVar(&f.population, "population", 0, "population size (>= 4)")
	fs.IntVar(&f.generations, "generations", 0, "number of generations")
	fs.IntVar(&f.maxDepth, "max-depth", 0, "maximum depth of seeded trees")
	fs.Int64Var(&f.seed, "seed", 0, "random seed")
	fs.Float64Var(&f.mutationRate, "mutation-rate", 0, "per-slot mutation probability")
	fs.Float64Var(&f.crossoverRate, "crossover-rate", 0, "per-slot crossover probability")
}

// request builds the run request from the config file and explicit flags.
func (f *runFlags) request(cmd *cobra.Command) (treegp.RunRequest, error) {
	var req treegp.RunRequest
	if f.configPath != "" {
		loaded, err := loadRunConfig(f.configPath)
		if err != nil {
			return treegp.RunRequest{}, err
		}
		req = loaded
	}

	fs := cmd.Flags()
	if fs.Changed("problem") {
		req.Problem = f.problem
	}
	if fs.Changed("population") {
		req.Population = f.population
	}
	if fs.Changed("generations") {
		req.Generations = f.generations
	}
	if fs.Changed("max-depth") {
		req.MaxDepth = f.maxDepth
	}
	if fs.Changed("seed") {
		req.Seed = f.seed
	}
	if fs.Changed("mutation-rate") {
		rate := f.mutationRate
		req.MutationRate = &rate
	}
	if fs.Changed("crossover-rate") {
		rate := f.crossoverRate
		req.CrossoverRate = &rate
	}
	return req, nil
}

func loadRunConfig(path string) (treegp.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return treegp.RunRequest{}, fmt.Errorf("read run config: %w", err)
	}
	return parseRunConfig(data)
}

func parseRunConfig(data []byte) (treegp.RunRequest, error) {
	var req treegp.RunRequest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return treegp.RunRequest{}, fmt.Errorf("parse run config: %w", err)
	}
	return req, nil
}
