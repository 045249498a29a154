package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"treegp/internal/evo"
	"treegp/internal/storage"
	"treegp/pkg/treegp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	storeKind string
	dbPath    string
	verbose   bool
	jsonOut   bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "treegpctl",
		Short:         "Evolve typed expression trees with genetic programming",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&g.storeKind, "store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	pf.StringVar(&g.dbPath, "db-path", "treegp.db", "sqlite database path")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log every generation")
	pf.BoolVar(&g.jsonOut, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newRunCommand(&g),
		newRunsCommand(&g),
		newHistoryCommand(&g),
		newProblemsCommand(&g),
	)
	return root
}

// newLogger writes text logs to terminals and JSON otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func openClient(cmd *cobra.Command, g *globalFlags, reg prometheus.Registerer) (*treegp.Client, error) {
	return treegp.New(treegp.Options{
		StoreKind:  g.storeKind,
		DBPath:     g.dbPath,
		Logger:     newLogger(cmd.ErrOrStderr(), g.verbose),
		Registerer: reg,
	})
}

func newRunCommand(g *globalFlags) *cobra.Command {
	var (
		flags       runFlags
		dump        bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one evolution and persist its history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}

			var reg prometheus.Registerer
			if metricsAddr != "" {
				registry := prometheus.NewRegistry()
				stopMetrics, err := serveMetrics(metricsAddr, registry)
				if err != nil {
					return err
				}
				defer stopMetrics()
				reg = registry
			}

			client, err := openClient(cmd, g, reg)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			out := cmd.OutOrStdout()
			if dump {
				req.Dump = out
			}
			if !g.jsonOut {
				req.Progress = func(r evo.GenerationReport) {
					fmt.Fprintf(out, "generation %4d  best=%.6f  avg=%.6f  size=%s\n",
						r.Generation, r.BestFitness, r.AverageFitness, humanize.Comma(int64(r.BestSize)))
				}
			}

			summary, err := client.Run(cmd.Context(), req)
			if err != nil && summary.RunID == "" {
				return err
			}
			if g.jsonOut {
				if jerr := writeJSON(out, summary); jerr != nil {
					return jerr
				}
				return err
			}
			fmt.Fprintf(out, "run_id=%s problem=%s status=%s generations=%d best=%.6f size=%s nodes elapsed=%s\n",
				summary.RunID, summary.Problem, summary.Status, summary.Generations, summary.BestFitness,
				humanize.Comma(int64(summary.BestSize)), summary.Duration.Round(time.Millisecond))
			fmt.Fprintf(out, "best=%s\n", summary.BestProgram)
			fmt.Fprintf(out, "expression=%s\n", summary.BestExpression)
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&dump, "dump", false, "print the population before and after the run")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus /metrics on this address during the run")
	return cmd
}

// serveMetrics exposes reg on addr until the returned stop function is called.
func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", slog.Any("error", err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func newRunsCommand(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openClient(cmd, g, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			runs, err := client.Runs(cmd.Context(), treegp.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if g.jsonOut {
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs")
				return nil
			}
			for _, run := range runs {
				fmt.Fprintf(out, "%s  %-22s %-9s gens=%-4d best=%.6f seed=%d started %s\n",
					run.ID, run.Problem, run.Status, run.CompletedGenerations, run.BestFitness, run.Seed,
					humanize.Time(run.StartedAt))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

func newHistoryCommand(g *globalFlags) *cobra.Command {
	var req treegp.HistoryRequest
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show per-generation statistics of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openClient(cmd, g, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			history, err := client.History(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if g.jsonOut {
				return writeJSON(out, history)
			}
			for _, h := range history {
				fmt.Fprintf(out, "%4d  best=%.6f  avg=%.6f  size=%-6s mut=%d cx=%d cx_abandoned=%d\n",
					h.Generation, h.BestFitness, h.AverageFitness, humanize.Comma(int64(h.BestSize)),
					h.Mutations, h.Crossovers, h.FailedCrossovers)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.RunID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&req.Latest, "latest", false, "use the most recent run")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "maximum number of generations to show (0 = all)")
	return cmd
}

func newProblemsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "problems",
		Short: "List the built-in problems and their default parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openClient(cmd, g, nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			items, err := client.Problems()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if g.jsonOut {
				return writeJSON(out, items)
			}
			for _, item := range items {
				d := item.Defaults
				fmt.Fprintf(out, "%-22s population=%d generations=%d max_depth=%d mutation=%.3f crossover=%.3f seed=%d\n",
					item.Name, d.PopulationSize, d.Generations, d.MaxDepth, d.MutationRate, d.CrossoverRate, d.Seed)
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
