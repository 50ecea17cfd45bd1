package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"impactsim/adapters/cache"
	"impactsim/adapters/cache/postgres"
	"impactsim/adapters/cache/sqlite"
	"impactsim/adapters/estimator/heuristic"
	"impactsim/adapters/excel"
	"impactsim/app"
	"impactsim/domain/core"
	"impactsim/domain/sim"
	"impactsim/domain/sweep"
	"impactsim/internal/agg"
	"impactsim/internal/config"
	apperrors "impactsim/internal/errors"
	"impactsim/internal/synth"
	"impactsim/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "impactsim",
		Short: "Causal-impact simulation study: synthetic sweeps, cached trials, aggregate statistics",
	}

	rootCmd.AddCommand(
		newTrialCmd(),
		newSweepCmd(),
		newAggregateCmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] %v\n", apperrors.GetCode(err), err)
		os.Exit(1)
	}
}

func newTrialCmd() *cobra.Command {
	var (
		effect   float64
		duration int
		structSD float64
		simID    int
		series   bool
	)

	cmd := &cobra.Command{
		Use:   "trial",
		Short: "Generate and estimate a single trial, printing the estimate as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			params, err := sim.NewParameters(effect, duration, structSD, simID)
			if err != nil {
				return err
			}
			generated, err := synth.Generate(params)
			if err != nil {
				return err
			}

			p1, p2 := generated.Predictors()
			est, err := heuristic.New().Estimate(cmd.Context(), ports.EstimateRequest{
				Response:   generated.Observed(),
				Predictor1: p1,
				Predictor2: p2,
				PreEnd:     params.PrePeriod,
				PostEnd:    params.TotalDays(),
				Config: ports.EstimatorConfig{
					PriorLevelSD:  cfg.Estimator.PriorLevelSD,
					Iterations:    cfg.Estimator.Iterations,
					IncludeSeries: series,
				},
			})
			if err != nil {
				return err
			}
			est.Params = params
			return printJSON(est)
		},
	}

	cmd.Flags().Float64Var(&effect, "effect", 0.1, "Multiplicative effect size e")
	cmd.Flags().IntVar(&duration, "duration", 180, "Campaign duration in days")
	cmd.Flags().Float64Var(&structSD, "structural-sd", sim.BaselineCoeffSD, "Coefficient step sd after the structural break")
	cmd.Flags().IntVar(&simID, "sim", 1, "Simulation ID (selects the deterministic draw)")
	cmd.Flags().BoolVar(&series, "series", false, "Include the per-timestep prediction series")

	return cmd
}

func newSweepCmd() *cobra.Command {
	var sims int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the study's default parameter sweep against the configured cache",
		Long: `Run the full filtered sweep: effect sizes at the reference duration,
durations at the reference effect size, and the structural-change
scenario at the reference cell. Already-cached trials are skipped, so an
interrupted sweep resumes where it stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if sims > 0 {
				cfg.Run.Simulations = sims
			}

			trialCache, closeCache, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			svc := app.NewSweepService(heuristic.New(), trialCache)
			_, summary, err := svc.RunSweep(cmd.Context(), sweep.DefaultGrid(cfg.Run.Simulations), app.SweepOptions{
				Estimator: ports.EstimatorConfig{
					PriorLevelSD:  cfg.Estimator.PriorLevelSD,
					Iterations:    cfg.Estimator.Iterations,
					IncludeSeries: cfg.Cache.StoreSeries,
				},
				Concurrency:   cfg.Run.Concurrency,
				ProgressEvery: cfg.Run.ProgressEvery,
			})
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}

	cmd.Flags().IntVar(&sims, "sims", 0, "Simulations per combination (overrides SIM_SIMULATIONS)")

	return cmd
}

func newAggregateCmd() *cobra.Command {
	var groupFields []string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Recompute rejection and coverage statistics from the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			trialCache, closeCache, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			groupBy, err := parseFields(groupFields)
			if err != nil {
				return err
			}

			report, err := buildReport(cmd.Context(), trialCache, groupBy)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	cmd.Flags().StringSliceVar(&groupFields, "group-by", []string{"effect_size"}, "Parameter fields to group by (effect_size, campaign_days, structural_sd)")

	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		out         string
		groupFields []string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the aggregate tables to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			trialCache, closeCache, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			groupBy, err := parseFields(groupFields)
			if err != nil {
				return err
			}

			report, err := buildReport(cmd.Context(), trialCache, groupBy)
			if err != nil {
				return err
			}
			return excel.NewSummaryWriter().Write(out, *report)
		},
	}

	cmd.Flags().StringVar(&out, "out", "impactsim-summary.xlsx", "Output workbook path")
	cmd.Flags().StringSliceVar(&groupFields, "group-by", []string{"effect_size"}, "Parameter fields to group by")

	return cmd
}

func buildReport(ctx context.Context, trialCache ports.TrialCache, groupBy []agg.Field) (*excel.Report, error) {
	svc := app.NewAggregateService(trialCache)

	rejection, err := svc.RejectionRates(ctx, groupBy)
	if core.IsNotFoundError(err) {
		return nil, fmt.Errorf("trial cache is empty, run a sweep first")
	}
	if err != nil {
		return nil, err
	}
	coverage, err := svc.Coverage(ctx, groupBy)
	if err != nil {
		return nil, err
	}
	pointwise, err := svc.PointwiseErrors(ctx, []agg.Field{agg.FieldStructuralSD})
	if err != nil {
		return nil, err
	}

	return &excel.Report{Rejection: rejection, Coverage: coverage, Pointwise: pointwise}, nil
}

func openCache(cfg *config.Config) (ports.TrialCache, func(), error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemory(), func() {}, nil
	case "sqlite":
		c, err := sqlite.Open(cfg.Cache.Path, sqlite.Options{StoreSeries: cfg.Cache.StoreSeries})
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	case "postgres":
		c, err := postgres.Open(cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

func parseFields(names []string) ([]agg.Field, error) {
	out := make([]agg.Field, 0, len(names))
	for _, name := range names {
		switch agg.Field(name) {
		case agg.FieldEffectSize, agg.FieldCampaignDays, agg.FieldStructuralSD:
			out = append(out, agg.Field(name))
		default:
			return nil, fmt.Errorf("unknown group-by field: %s", name)
		}
	}
	return out, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
