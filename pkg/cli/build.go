package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mchmarny/top1m/pkg/data"
	"github.com/mchmarny/top1m/pkg/export"
	"github.com/mchmarny/top1m/pkg/logging"
	"github.com/mchmarny/top1m/pkg/metrics"
	"github.com/mchmarny/top1m/pkg/rank"
	"github.com/mchmarny/top1m/pkg/source"
	"github.com/urfave/cli/v2"
)

var (
	targetSizeFlag = &cli.IntFlag{
		Name:  "target-size",
		Usage: fmt.Sprintf("Number of domains in the ranking (default from config: %d)", rank.DefaultTargetSize),
	}

	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Parallel accumulation workers, 0 uses all CPUs (default from config)",
	}

	outDirFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Directory for the CSV files (default from config)",
	}

	sourceFlag = &cli.StringSliceFlag{
		Name:  "source",
		Usage: "Name of the source to include (can be specified multiple times, default: all enabled)",
	}

	topFlag = &cli.IntFlag{
		Name:  "top",
		Usage: "Number of top entries in the report",
		Value: rank.DefaultTopN,
	}

	keepFlag = &cli.IntFlag{
		Name:  "keep",
		Usage: "Number of stored runs to keep, 0 keeps all (default from config)",
	}

	noDBFlag = &cli.BoolFlag{
		Name:  "no-db",
		Usage: "Do not store the run in the database",
	}

	metricsFileFlag = &cli.StringFlag{
		Name:  "metrics-file",
		Usage: "Write build metrics in Prometheus text format to this file",
	}

	buildCmd = &cli.Command{
		Name:    "build",
		Aliases: []string{"b"},
		Usage:   "Download the sources and build the composite ranking",
		UsageText: `top1m build                                   # all enabled sources
   top1m build --source Tranco --source Majestic # selected sources
   top1m build --target-size 10000 --out ./data  # smaller ranking`,
		Action: cmdBuild,
		Flags: []cli.Flag{
			targetSizeFlag,
			workersFlag,
			outDirFlag,
			sourceFlag,
			topFlag,
			keepFlag,
			noDBFlag,
			metricsFileFlag,
			debugFlag,
		},
	}
)

// BuildReport is the outcome of a build.
type BuildReport struct {
	RunID      int64                `json:"run_id,omitempty" yaml:"runID,omitempty"`
	TargetSize int                  `json:"target_size" yaml:"targetSize"`
	Files      *export.Files        `json:"files" yaml:"files"`
	Loaded     []*source.Summary    `json:"loaded" yaml:"loaded"`
	Sources    []rank.SourceSummary `json:"sources" yaml:"sources"`
	Domains    int                  `json:"domains" yaml:"domains"`
	Stats      *rank.Stats          `json:"stats" yaml:"stats"`
	Pruned     int                  `json:"pruned,omitempty" yaml:"pruned,omitempty"`
	Duration   string               `json:"duration" yaml:"duration"`
}

type buildOptions struct {
	targetSize  int
	workers     int
	outDir      string
	sources     []*source.Config
	top         int
	keep        int
	noDB        bool
	metricsFile string
}

func cmdBuild(c *cli.Context) error {
	applyFlags(c)
	cfg := getConfig(c)

	opts, err := getBuildOptions(c, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := source.NewLoader(source.WithRequestInterval(cfg.Config.RequestInterval))
	rec := metrics.NewRecorder(false)

	report, err := build(ctx, cfg, opts, loader, rec)
	if err != nil {
		return err
	}

	return encode(c, report)
}

func getBuildOptions(c *cli.Context, cfg *appConfig) (*buildOptions, error) {
	conf := cfg.Config
	opts := &buildOptions{
		targetSize:  conf.TargetSize,
		workers:     conf.Workers,
		outDir:      conf.OutputDir,
		top:         c.Int(topFlag.Name),
		keep:        conf.KeepRuns,
		noDB:        c.Bool(noDBFlag.Name),
		metricsFile: c.String(metricsFileFlag.Name),
	}

	if c.IsSet(targetSizeFlag.Name) {
		opts.targetSize = c.Int(targetSizeFlag.Name)
	}
	if c.IsSet(workersFlag.Name) {
		opts.workers = c.Int(workersFlag.Name)
	}
	if c.IsSet(outDirFlag.Name) {
		opts.outDir = c.String(outDirFlag.Name)
	}
	if c.IsSet(keepFlag.Name) {
		opts.keep = c.Int(keepFlag.Name)
	}
	if opts.workers == 0 {
		opts.workers = runtime.NumCPU()
	}

	list, err := source.Select(conf.Sources, c.StringSlice(sourceFlag.Name)...)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.New("no sources selected")
	}
	opts.sources = list

	return opts, nil
}

type listLoader interface {
	LoadAll(ctx context.Context, cfgs []*source.Config) ([]rank.SourceList, []*source.Summary, error)
}

func build(ctx context.Context, cfg *appConfig, opts *buildOptions, loader listLoader, rec *metrics.Recorder) (*BuildReport, error) {
	start := time.Now()

	agg, err := rank.NewAggregator(rank.WithTargetSize(opts.targetSize), rank.WithWorkers(opts.workers))
	if err != nil {
		return nil, err
	}

	lists, loaded, err := loader.LoadAll(ctx, opts.sources)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	for _, s := range loaded {
		if s.Error != "" {
			rec.RecordSourceFailure(s.Name)
		}
	}

	aggStart := time.Now()
	res, err := agg.Aggregate(lists)
	if err != nil {
		return nil, fmt.Errorf("building ranking: %w", err)
	}
	slog.Info("ranking built",
		"domains", logging.Count(res.Domains),
		"entries", logging.Count(len(res.Entries)),
		"duration", time.Since(aggStart).Round(time.Millisecond))

	files, err := export.Save(opts.outDir, res.Entries, start)
	if err != nil {
		return nil, fmt.Errorf("exporting ranking: %w", err)
	}
	slog.Info("ranking exported", "full", files.Full, "simple", files.Simple)

	report := &BuildReport{
		TargetSize: opts.targetSize,
		Files:      files,
		Loaded:     loaded,
		Sources:    res.Sources,
		Domains:    res.Domains,
		Stats:      rank.Summarize(res.Entries, opts.top),
	}

	if !opts.noDB {
		info := data.RunInfo{At: start, TargetSize: opts.targetSize, Duration: time.Since(start)}
		if report.RunID, err = data.SaveRun(cfg.DB, info, res); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
		if report.Pruned, err = data.PruneRuns(cfg.DB, opts.keep); err != nil {
			return nil, fmt.Errorf("pruning runs: %w", err)
		}
		slog.Info("run saved", "id", report.RunID, "pruned", report.Pruned)
	}

	d := time.Since(start)
	report.Duration = d.Round(time.Millisecond).String()

	rec.RecordResult(res)
	rec.RecordBuild(d, time.Now())
	if opts.metricsFile != "" {
		if err := rec.WriteTextfile(opts.metricsFile); err != nil {
			return nil, err
		}
		slog.Debug("metrics written", "path", opts.metricsFile)
	}

	return report, nil
}

func (r *BuildReport) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if r.RunID > 0 {
		fmt.Fprintf(tw, "Run:\t%d\n", r.RunID)
	}
	fmt.Fprintf(tw, "Full ranking:\t%s\n", r.Files.Full)
	fmt.Fprintf(tw, "Simple ranking:\t%s\n", r.Files.Simple)
	fmt.Fprintf(tw, "Distinct domains:\t%s\n", logging.Count(r.Domains))
	fmt.Fprintf(tw, "Ranked domains:\t%s\n", logging.Count(r.Stats.Total))
	fmt.Fprintf(tw, "Duration:\t%s\n", r.Duration)

	fmt.Fprintln(tw, "\nSOURCE\tWEIGHT\tRECORDS\tACCEPTED\tSKIPPED")
	for _, s := range r.Sources {
		fmt.Fprintf(tw, "%s\t%g\t%s\t%s\t%s\n", s.Name, s.Weight,
			logging.Count(s.Records), logging.Count(s.Accepted), logging.Count(s.Skipped))
	}
	for _, s := range r.Loaded {
		if s.Error != "" {
			fmt.Fprintf(tw, "%s\tfailed: %s\n", s.Name, s.Error)
		}
	}

	fmt.Fprintln(tw, "\nAPPEARANCES\tDOMAINS")
	for _, a := range r.Stats.Distribution {
		fmt.Fprintf(tw, "%d\t%s\n", a.Appearances, logging.Count(a.Domains))
	}

	fmt.Fprintf(tw, "\nScore max/min:\t%.6f / %.6f\n", r.Stats.MaxScore, r.Stats.MinScore)
	fmt.Fprintf(tw, "Score mean/median:\t%.6f / %.6f\n", r.Stats.MeanScore, r.Stats.MedianScore)

	fmt.Fprintln(tw, "\nRANK\tDOMAIN\tSCORE\tAPPEARANCES")
	for _, e := range r.Stats.Top {
		fmt.Fprintf(tw, "%d\t%s\t%.6f\t%d\n", e.Rank, e.Domain, e.CompositeScore, e.Appearances)
	}

	return tw.Flush()
}
