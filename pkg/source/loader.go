package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mchmarny/top1m/pkg/logging"
	"github.com/mchmarny/top1m/pkg/net"
	"github.com/mchmarny/top1m/pkg/rank"
	"golang.org/x/time/rate"
)

// DefaultRequestInterval spaces out list downloads.
const DefaultRequestInterval = time.Second

// Summary reports how loading a single source went.
type Summary struct {
	Name     string  `json:"name" yaml:"name"`
	Weight   float64 `json:"weight" yaml:"weight"`
	Records  int     `json:"records" yaml:"records"`
	Bytes    int64   `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Duration string  `json:"duration" yaml:"duration"`
	Error    string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		l.client = c
	}
}

// WithRequestInterval sets the minimum time between downloads.
// Zero or negative disables pacing.
func WithRequestInterval(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d <= 0 {
			l.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		l.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithTempDir sets where downloads are spooled before parsing.
func WithTempDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.tempDir = dir
	}
}

// Loader turns source configs into rank.SourceList values.
type Loader struct {
	client  *http.Client
	limiter *rate.Limiter
	tempDir string
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		limiter: rate.NewLimiter(rate.Every(DefaultRequestInterval), 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches (or opens) the list described by cfg and parses it.
func (l *Loader) Load(ctx context.Context, cfg *Config) (*rank.SourceList, error) {
	list, _, err := l.load(ctx, cfg)
	return list, err
}

func (l *Loader) load(ctx context.Context, cfg *Config) (*rank.SourceList, int64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, 0, err
	}

	path := cfg.Path
	var size int64

	if cfg.URL != "" {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("waiting to download %s: %w", cfg.Name, err)
		}

		f, err := os.CreateTemp(l.tempDir, "top1m-*")
		if err != nil {
			return nil, 0, fmt.Errorf("error creating temp file: %w", err)
		}
		path = f.Name()
		f.Close()
		defer os.Remove(path)

		slog.Debug("downloading", "source", cfg.Name, "url", cfg.URL, "path", path)
		size, err = net.Download(ctx, l.client, cfg.URL, path)
		if err != nil {
			return nil, 0, fmt.Errorf("error downloading %s: %w", cfg.URL, err)
		}
	}

	slog.Debug("parsing", "source", cfg.Name, "path", path, "format", cfg.Format)
	records, err := ReadFile(path, cfg)
	if err != nil {
		return nil, size, fmt.Errorf("error parsing %s: %w", cfg.Name, err)
	}

	return &rank.SourceList{
		Name:    cfg.Name,
		Weight:  cfg.Weight,
		Limit:   cfg.Limit,
		Records: records,
	}, size, nil
}

// LoadAll loads the sources in order. A source that fails is logged,
// reported in its Summary and left out; only cancellation aborts the run.
func (l *Loader) LoadAll(ctx context.Context, cfgs []*Config) ([]rank.SourceList, []*Summary, error) {
	lists := make([]rank.SourceList, 0, len(cfgs))
	summaries := make([]*Summary, 0, len(cfgs))

	for _, cfg := range cfgs {
		if err := ctx.Err(); err != nil {
			return nil, summaries, err
		}

		slog.Info("loading source", "name", cfg.Name, "description", cfg.Description)
		start := time.Now()
		sum := &Summary{Name: cfg.Name, Weight: cfg.Weight}
		summaries = append(summaries, sum)

		list, size, err := l.load(ctx, cfg)
		sum.Duration = time.Since(start).String()
		sum.Bytes = size
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, summaries, err
			}
			slog.Error("failed to load source", "name", cfg.Name, "error", err)
			sum.Error = err.Error()
			continue
		}

		sum.Records = len(list.Records)
		lists = append(lists, *list)
		slog.Info("source loaded", "name", cfg.Name, "records", logging.Count(sum.Records), "duration", sum.Duration)
	}

	slog.Info("sources loaded", "loaded", len(lists), "configured", len(cfgs))
	return lists, summaries, nil
}
