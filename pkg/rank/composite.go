package rank

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTargetSize is the maximum number of entries in a ranking.
	DefaultTargetSize = 1_000_000

	// stabilityBonusStep is the reward for each additional confirming sample.
	stabilityBonusStep = 0.1
)

type sample struct {
	score  float64
	weight float64
}

// accumulator collects the weighted score samples of a single domain.
type accumulator struct {
	samples     []sample
	appearances int
}

func (a *accumulator) add(score, weight float64) {
	a.samples = append(a.samples, sample{score: score, weight: weight})
	a.appearances++
}

// entry derives the immutable ranking entry (without rank) for the domain.
func (a *accumulator) entry(domain string) Entry {
	var weighted, total float64
	for _, s := range a.samples {
		weighted += s.score * s.weight
		total += s.weight
	}

	var avg float64
	if total > 0 {
		avg = weighted / total
	}

	return Entry{
		Domain:         domain,
		CompositeScore: avg * StabilityBonus(a.appearances),
		Appearances:    a.appearances,
		AvgScore:       avg,
	}
}

// partial is the fold of a single source list. Domains are kept in the
// order they were first seen so merges preserve discovery order.
type partial struct {
	order   []string
	domains map[string]*accumulator
	summary SourceSummary
}

// StabilityBonus returns the multiplier for a domain confirmed by the given
// number of samples: 10% per additional sample, uncapped.
func StabilityBonus(appearances int) float64 {
	return 1 + float64(appearances-1)*stabilityBonusStep
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTargetSize caps the number of entries in the ranking.
func WithTargetSize(n int) Option {
	return func(a *Aggregator) {
		a.targetSize = n
	}
}

// WithWorkers sets how many source lists may be folded concurrently.
// Values of 0 or 1 fold serially.
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		a.workers = n
	}
}

// Aggregator fuses weighted source lists into a composite ranking.
// It holds no per-run state and is safe for concurrent use.
type Aggregator struct {
	targetSize int
	workers    int
}

// NewAggregator returns an aggregator with the given options applied.
// Invalid settings are reported as *ConfigError.
func NewAggregator(opts ...Option) (*Aggregator, error) {
	a := &Aggregator{
		targetSize: DefaultTargetSize,
		workers:    1,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.targetSize <= 0 {
		return nil, newConfigError("target_size", "must be positive, got %d", a.targetSize)
	}
	if a.workers < 0 {
		return nil, newConfigError("workers", "must not be negative, got %d", a.workers)
	}

	return a, nil
}

// TargetSize returns the configured ranking size cap.
func (a *Aggregator) TargetSize() int { return a.targetSize }

// Aggregate folds every valid record of every list into per-domain weighted
// averages, applies the stability bonus, and returns the ranking sorted by
// composite score. Ties keep the order in which domains were first seen
// (list order, then record order), so identical input yields identical output.
//
// Invalid records are skipped and counted. ErrNoData is returned when no
// list carries a valid record; *ConfigError when a list has a non-positive
// weight or a negative limit.
func (a *Aggregator) Aggregate(lists []SourceList) (*Result, error) {
	if err := validateLists(lists); err != nil {
		return nil, err
	}

	if !hasRecords(lists) {
		return nil, ErrNoData
	}

	start := time.Now()
	partials := a.fold(lists)
	order, domains := merge(partials)
	if len(order) == 0 {
		return nil, ErrNoData
	}

	entries := make([]Entry, 0, len(order))
	for _, d := range order {
		entries = append(entries, domains[d].entry(d))
	}

	slices.SortStableFunc(entries, func(x, y Entry) int {
		return cmp.Compare(y.CompositeScore, x.CompositeScore)
	})

	if len(entries) > a.targetSize {
		entries = slices.Clone(entries[:a.targetSize])
	}

	for i := range entries {
		entries[i].Rank = i + 1
	}

	res := &Result{
		Entries: entries,
		Sources: make([]SourceSummary, 0, len(partials)),
		Domains: len(order),
	}
	for _, p := range partials {
		res.Sources = append(res.Sources, p.summary)
	}

	slog.Debug("aggregated",
		"sources", len(lists),
		"domains", res.Domains,
		"entries", len(res.Entries),
		"duration", time.Since(start).String(),
	)

	return res, nil
}

func validateLists(lists []SourceList) error {
	for i, l := range lists {
		if l.Weight <= 0 || math.IsNaN(l.Weight) || math.IsInf(l.Weight, 0) {
			return newConfigError("weight", "must be a positive number, got %v for source %d (%s)", l.Weight, i, l.Name)
		}
		if l.Limit < 0 {
			return newConfigError("limit", "must not be negative, got %d for source %d (%s)", l.Limit, i, l.Name)
		}
	}
	return nil
}

func hasRecords(lists []SourceList) bool {
	for _, l := range lists {
		if len(l.Records) > 0 {
			return true
		}
	}
	return false
}

func (a *Aggregator) fold(lists []SourceList) []*partial {
	partials := make([]*partial, len(lists))

	if a.workers <= 1 || len(lists) < 2 {
		for i := range lists {
			partials[i] = foldSource(lists[i])
		}
		return partials
	}

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i := range lists {
		g.Go(func() error {
			partials[i] = foldSource(lists[i])
			return nil
		})
	}
	_ = g.Wait() // folds do not fail

	return partials
}

func foldSource(list SourceList) *partial {
	records := list.considered()
	p := &partial{
		order:   make([]string, 0, len(records)),
		domains: make(map[string]*accumulator, len(records)),
		summary: SourceSummary{
			Name:       list.Name,
			Weight:     list.Weight,
			Records:    len(list.Records),
			Considered: len(records),
		},
	}

	for _, r := range records {
		domain := NormalizeDomain(r.Domain)
		if domain == "" {
			p.summary.Skipped++
			continue
		}

		score, err := Score(r.Rank)
		if err != nil {
			p.summary.Skipped++
			continue
		}

		acc, ok := p.domains[domain]
		if !ok {
			acc = &accumulator{}
			p.domains[domain] = acc
			p.order = append(p.order, domain)
		}
		acc.add(score, list.Weight)
		p.summary.Accepted++
	}

	return p
}

// merge combines partials in list order. The first partial's state is
// adopted as is; later partials append their samples, so summation order
// and discovery order match a single serial pass.
func merge(partials []*partial) ([]string, map[string]*accumulator) {
	if len(partials) == 0 {
		return nil, nil
	}

	order := partials[0].order
	domains := partials[0].domains

	for _, p := range partials[1:] {
		for _, d := range p.order {
			src := p.domains[d]
			dst, ok := domains[d]
			if !ok {
				domains[d] = src
				order = append(order, d)
				continue
			}
			dst.samples = append(dst.samples, src.samples...)
			dst.appearances += src.appearances
		}
	}

	return order, domains
}
