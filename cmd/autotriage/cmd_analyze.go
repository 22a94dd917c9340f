package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/kiranshivaraju/autotriage/internal/analysis"
	"github.com/kiranshivaraju/autotriage/internal/cache"
	"github.com/kiranshivaraju/autotriage/internal/logging"
	"github.com/kiranshivaraju/autotriage/internal/pricing"
	"github.com/kiranshivaraju/autotriage/pkg/models"
	"github.com/spf13/cobra"
)

var errLockHeld = errors.New("another analysis run is in progress")

func newAnalyzeCmd(e *env) *cobra.Command {
	var (
		p      analysis.Params
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [n_clusters]",
		Short: "Run clustering analysis and show cost and sentiment suggestions",
		Long: `Group stored feedback into clusters and report per-cluster sentiment and
suggested repair cost. By default complaints are clustered by text and every
record is labelled with its fault cluster; --cluster-by-make groups by car
make and model instead and leaves records untouched.

Examples:
  autotriage analyze
  autotriage analyze 8 --alpha 0.2 --cap 1
  autotriage analyze -m --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := analysis.ParamsFromConfig(e.cfg.Analysis)
			if !cmd.Flags().Changed("alpha") {
				p.Alpha = defaults.Alpha
			}
			if !cmd.Flags().Changed("cap") {
				p.Cap = defaults.Cap
			}
			p.NClusters = defaults.NClusters
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return failed("run analysis", fmt.Errorf("n_clusters must be an integer, got %q", args[0]))
				}
				p.NClusters = n
			}
			if err := p.Validate(); err != nil {
				return failed("run analysis", err)
			}

			report, err := e.runAnalysis(cmd.Context(), p)
			if err != nil {
				return failed("run analysis", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			if len(report.Results) == 0 {
				fmt.Fprintln(out, "No feedbacks to analyze.")
				return nil
			}
			printResults(out, report.Results)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&p.ClusterByMake, "cluster-by-make", "m", false, "Cluster by car make/model instead of complaint text")
	f.Float64Var(&p.Alpha, "alpha", analysis.DefaultParams().Alpha, "Factor for dynamic pricing sensitivity")
	f.Float64Var(&p.Cap, "cap", analysis.DefaultParams().Cap, "Maximum cap on price increase (e.g. 0.5 = +50%)")
	f.BoolVar(&p.AtomicWriteBack, "atomic", false, "Write all cluster labels in one transaction")
	f.BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// runAnalysis runs one analysis, holding the shared run lock when Redis is
// configured. The report is published as the latest report on success.
func (e *env) runAnalysis(ctx context.Context, p analysis.Params) (*models.AnalysisReport, error) {
	model, err := e.loadModel()
	if err != nil {
		return nil, fmt.Errorf("load language model: %w", err)
	}
	engine := analysis.NewEngine(model, analysis.KMeansFromConfig(e.cfg.Analysis))
	svc := analysis.NewService(e.store, engine, pricing.Default(), logging.New("analysis"))

	if e.cache == nil {
		return svc.Report(ctx, p)
	}

	var report *models.AnalysisReport
	err = cache.WithLock(ctx, e.cache, cache.AnalysisLockKey, e.cfg.Analysis.LockTTL, func(ctx context.Context) error {
		var err error
		report, err = svc.Report(ctx, p)
		return err
	})
	if errors.Is(err, cache.ErrLockHeld) {
		return nil, errLockHeld
	}
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(report); err == nil {
		if err := e.cache.Set(ctx, cache.LatestReportKey, b, cache.LatestReportTTL); err != nil {
			slog.Warn("store latest report failed", "run_id", report.RunID, "error", err)
		}
	}
	return report, nil
}

func printResults(w io.Writer, results []models.AnalysisResult) {
	fmt.Fprintln(w, "Analysis results:")
	for _, r := range results {
		capped := ""
		if r.Capped {
			capped = " (capped)"
		}
		fmt.Fprintf(w, "\nCluster: %s  -  count: %d\n", r.Cluster, r.Count)
		fmt.Fprintf(w, "  avg_sentiment: %.2f\n", r.AvgSentiment)
		fmt.Fprintf(w, "  suggested_cost: $%.2f%s\n", r.SuggestedCost, capped)
		fmt.Fprintln(w, "  examples:")
		for _, ex := range r.Examples {
			fmt.Fprintf(w, "    - %s\n", ex)
		}
	}
}
