// Command sweep runs DBSCAN over a TSV dataset for every (eps, minPts)
// combination in a parameter grid and writes the labels report, plus an
// optional CSV summary, SQLite history and charts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/dbscan-sweep/internal/chart"
	"github.com/banshee-data/dbscan-sweep/internal/cluster"
	"github.com/banshee-data/dbscan-sweep/internal/config"
	"github.com/banshee-data/dbscan-sweep/internal/dataset"
	"github.com/banshee-data/dbscan-sweep/internal/db"
	"github.com/banshee-data/dbscan-sweep/internal/fsutil"
	"github.com/banshee-data/dbscan-sweep/internal/monitoring"
	"github.com/banshee-data/dbscan-sweep/internal/sweep"
	"github.com/banshee-data/dbscan-sweep/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("sweep: %v", err)
	}
}

// options holds the parsed command line.
type options struct {
	input       string
	configPath  string
	showVersion bool
	overrides   config.Overrides
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(stderr)

	input := fs.String("input", "", "TSV dataset: id followed by numeric coordinates (required)")
	configPath := fs.String("config", "", "JSON sweep config (see "+config.DefaultConfigPath+")")
	eps := fs.String("eps", config.DefaultEpsilons, "Comma-separated eps values or range start:end:step")
	minPts := fs.String("minpts", config.DefaultMinPoints, "Comma-separated minPts values or range start:end:step")
	metric := fs.String("metric", config.DefaultMetric, "Distance metric: euclidean, manhattan or chebyshev")
	index := fs.String("index", config.DefaultIndex, "Neighbour index: auto, matrix or grid")
	workers := fs.Int("workers", 0, "Concurrent combinations (0 = one per CPU)")
	matrixWorkers := fs.Int("matrix-workers", 0, "Distance matrix build workers (0 = one per CPU)")
	failFast := fs.Bool("fail-fast", false, "Abort the sweep on the first failed combination")
	output := fs.String("output", config.DefaultReportPath, "Labels report path")
	summary := fs.String("summary", "", "Per-combination CSV summary path (disabled when empty)")
	dbPath := fs.String("db", "", "SQLite database recording the sweep (disabled when empty)")
	chartDir := fs.String("charts", "", "Directory for HTML and PNG charts (disabled when empty)")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts := &options{input: *input, configPath: *configPath, showVersion: *showVersion}

	// Only flags given on the command line override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "eps":
			opts.overrides.Epsilons = eps
		case "minpts":
			opts.overrides.MinPoints = minPts
		case "metric":
			opts.overrides.Metric = metric
		case "index":
			opts.overrides.Index = index
		case "workers":
			opts.overrides.Workers = workers
		case "matrix-workers":
			opts.overrides.MatrixWorkers = matrixWorkers
		case "fail-fast":
			opts.overrides.FailFast = failFast
		case "output":
			opts.overrides.ReportPath = output
		case "summary":
			opts.overrides.SummaryPath = summary
		case "db":
			opts.overrides.DatabasePath = dbPath
		case "charts":
			opts.overrides.ChartDir = chartDir
		}
	})
	return opts, nil
}

func loadConfig(opts *options) (*config.SweepConfig, error) {
	cfg := config.EmptySweepConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadSweepConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Apply(opts.overrides); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "sweep %s\n", version.String())
		return nil
	}
	if opts.input == "" {
		return errors.New("-input is required")
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ds, err := dataset.LoadFile(opts.input)
	if err != nil {
		return err
	}
	monitoring.Logf("Loaded %d points (%d dims) from %s", ds.Len(), ds.Dims, opts.input)

	idx, err := buildIndex(cfg, ds)
	if err != nil {
		return err
	}

	grid, err := sweep.Grid(cfg.GetEpsilons(), cfg.GetMinPoints())
	if err != nil {
		return err
	}

	var (
		store   *db.SweepStore
		sweepID string
	)
	if path := cfg.GetDatabasePath(); path != "" {
		database, openErr := db.Open(path)
		if openErr != nil {
			return openErr
		}
		defer database.Close()

		store = db.NewSweepStore(database)
		rec := &db.SweepRecord{
			DatasetPath: opts.input,
			PointCount:  ds.Len(),
			Dims:        ds.Dims,
			Metric:      cfg.GetMetric(),
			IndexKind:   cfg.GetIndex(),
		}
		if err := store.InsertSweep(rec); err != nil {
			return err
		}
		sweepID = rec.SweepID
		monitoring.Logf("Recording sweep %s in %s", sweepID, path)

		// Every return past this point leaves the sweep completed or failed.
		defer func() {
			if cerr := store.CompleteSweep(sweepID, err); cerr != nil {
				monitoring.Logf("Failed to close out sweep %s: %v", sweepID, cerr)
				if err == nil {
					err = cerr
				}
			}
		}()
	}

	runner := &sweep.Runner{Index: idx, Workers: cfg.GetWorkers(), FailFast: cfg.GetFailFast()}
	done := monitoring.Timed("sweep")
	results, runErr := runner.Run(ctx, grid)
	done()

	for _, r := range sweep.Failed(results) {
		monitoring.Logf("Combination eps=%s minPts=%d failed: %v", sweep.FormatEps(r.Params.Eps), r.Params.MinPts, r.Err)
	}

	if store != nil {
		if err := store.SaveResults(sweepID, results); err != nil {
			return err
		}
	}

	if err := writeOutputs(cfg, ds, results); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("sweep aborted: %w", runErr)
	}
	fmt.Fprintf(stdout, "Wrote %d combinations for %d points to %s\n", len(grid)-len(sweep.Failed(results)), ds.Len(), cfg.GetReportPath())
	return nil
}

// buildIndex computes the shared distance matrix and wraps it in the
// configured neighbour index.
func buildIndex(cfg *config.SweepConfig, ds *dataset.Dataset) (cluster.Index, error) {
	metric, err := cluster.MetricByName(cfg.GetMetric())
	if err != nil {
		return nil, err
	}
	kind, err := cluster.ParseIndexKind(cfg.GetIndex())
	if err != nil {
		return nil, err
	}

	coords := ds.Coordinates()
	done := monitoring.Timed("distance matrix")
	m, err := cluster.BuildDistanceMatrixParallel(coords, metric, cfg.GetMatrixWorkers())
	done()
	if err != nil {
		return nil, fmt.Errorf("building distance matrix: %w", err)
	}
	return cluster.NewIndex(kind, coords, m)
}

func writeOutputs(cfg *config.SweepConfig, ds *dataset.Dataset, results []sweep.Result) error {
	fsys := fsutil.OSFileSystem{}

	if err := sweep.SaveReport(fsys, cfg.GetReportPath(), ds.Len(), results); err != nil {
		return err
	}
	if path := cfg.GetSummaryPath(); path != "" {
		if err := sweep.SaveSummary(fsys, path, results); err != nil {
			return err
		}
	}
	if dir := cfg.GetChartDir(); dir != "" {
		if _, err := chart.SaveSweep(fsys, dir, ds, results); err != nil {
			return err
		}
	}
	return nil
}
