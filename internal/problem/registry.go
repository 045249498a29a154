package problem

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrProblemExists   = errors.New("problem already registered")
	ErrProblemNotFound = errors.New("problem not found")
)

// Factory builds a fresh problem instance.
type Factory func() (Problem, error)

var problemRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: map[string]Factory{
		FunctionSolverName:      func() (Problem, error) { return NewFunctionSolver() },
		MultiFunctionSolverName: func() (Problem, error) { return NewMultiFunctionSolver() },
	},
}

// Register adds a named problem factory.
func Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("problem name is required")
	}
	if factory == nil {
		return errors.New("problem factory is required")
	}

	problemRegistry.mu.Lock()
	defer problemRegistry.mu.Unlock()

	if _, exists := problemRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrProblemExists, name)
	}
	problemRegistry.m[name] = factory
	return nil
}

// New builds the problem registered under name.
func New(name string) (Problem, error) {
	problemRegistry.mu.RLock()
	factory, ok := problemRegistry.m[name]
	problemRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProblemNotFound, name)
	}
	p, err := factory()
	if err != nil {
		return nil, fmt.Errorf("build problem %s: %w", name, err)
	}
	return p, nil
}

// Names lists registered problems in sorted order.
func Names() []string {
	problemRegistry.mu.RLock()
	defer problemRegistry.mu.RUnlock()

	names := make([]string, 0, len(problemRegistry.m))
	for name := range problemRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
