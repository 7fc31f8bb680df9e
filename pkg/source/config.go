package source

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/mchmarny/top1m/pkg/rank"
)

// Format is the container format of a published list.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatCSVZip Format = "csv_zip"
	FormatCSVGz  Format = "csv_gz"
)

var validate = validator.New()

// Config describes where a list is published and how to map its columns
// into ranked records.
type Config struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// URL is downloaded when set; otherwise Path is read from disk.
	URL    string `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Format Format `json:"format" yaml:"format" validate:"required,oneof=csv csv_zip csv_gz"`
	// Header indicates the first row holds column names. Headerless files
	// are mapped with Columns.
	Header       bool     `json:"header" yaml:"header"`
	Columns      []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	RankColumn   string   `json:"rank_column" yaml:"rank_column" validate:"required"`
	DomainColumn string   `json:"domain_column" yaml:"domain_column" validate:"required"`
	// StripScheme turns origins (https://www.example.com) into domains.
	StripScheme bool    `json:"strip_scheme,omitempty" yaml:"strip_scheme,omitempty"`
	Weight      float64 `json:"weight" yaml:"weight" validate:"gt=0"`
	Limit       int     `json:"limit,omitempty" yaml:"limit,omitempty" validate:"gte=0"`
	Disabled    bool    `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Validate checks the source definition. Failures unwrap to rank.ErrConfiguration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: source config required", rank.ErrConfiguration)
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: source %q: %w", rank.ErrConfiguration, c.Name, err)
	}

	if c.URL == "" && c.Path == "" {
		return fmt.Errorf("%w: source %q: url or path required", rank.ErrConfiguration, c.Name)
	}

	if !c.Header {
		if !slices.Contains(c.Columns, c.RankColumn) || !slices.Contains(c.Columns, c.DomainColumn) {
			return fmt.Errorf("%w: source %q: columns %v must include %q and %q",
				rank.ErrConfiguration, c.Name, c.Columns, c.RankColumn, c.DomainColumn)
		}
	}

	return nil
}

// ValidateAll validates every source and rejects duplicate names.
func ValidateAll(list []*Config) error {
	if len(list) == 0 {
		return fmt.Errorf("%w: at least one source required", rank.ErrConfiguration)
	}

	seen := make(map[string]bool, len(list))
	var errs []error
	for _, c := range list {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[c.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate source %q", rank.ErrConfiguration, c.Name))
		}
		seen[c.Name] = true
	}

	return errors.Join(errs...)
}

// Select returns the enabled sources, narrowed to names when any are given.
func Select(list []*Config, names ...string) ([]*Config, error) {
	out := make([]*Config, 0, len(list))
	for _, c := range list {
		if len(names) > 0 {
			if slices.Contains(names, c.Name) {
				out = append(out, c)
			}
			continue
		}
		if !c.Disabled {
			out = append(out, c)
		}
	}

	for _, n := range names {
		if !slices.ContainsFunc(list, func(c *Config) bool { return c.Name == n }) {
			return nil, fmt.Errorf("%w: unknown source %q", rank.ErrConfiguration, n)
		}
	}

	return out, nil
}

// Defaults returns a fresh copy of the built-in source catalog.
func Defaults() []*Config {
	return []*Config{
		{
			Name:         "Tranco",
			Description:  "Research-oriented composite list (30-day avg)",
			URL:          "https://tranco-list.eu/top-1m.csv.zip",
			Format:       FormatCSVZip,
			Columns:      []string{"rank", "domain"},
			RankColumn:   "rank",
			DomainColumn: "domain",
			Weight:       1.5,
		},
		{
			Name:         "Cisco_Umbrella",
			Description:  "DNS query data from 100B+ requests/day",
			URL:          "https://s3-us-west-1.amazonaws.com/umbrella-static/top-1m.csv.zip",
			Format:       FormatCSVZip,
			Columns:      []string{"rank", "domain"},
			RankColumn:   "rank",
			DomainColumn: "domain",
			Weight:       1.3,
		},
		{
			Name:         "Majestic",
			Description:  "Backlink-based ranking (referring subnets)",
			URL:          "https://downloads.majestic.com/majestic_million.csv",
			Format:       FormatCSV,
			Header:       true,
			RankColumn:   "GlobalRank",
			DomainColumn: "Domain",
			Weight:       1.2,
		},
		{
			Name:         "BuiltWith",
			Description:  "Technology spend and investment ranking",
			URL:          "https://builtwith.com/dl/builtwith-top1m.zip",
			Format:       FormatCSVZip,
			Columns:      []string{"rank", "domain"},
			RankColumn:   "rank",
			DomainColumn: "domain",
			Weight:       1.0,
		},
		{
			Name:         "DomCop",
			Description:  "Open PageRank from CommonCrawl",
			URL:          "https://www.domcop.com/files/top/top10milliondomains.csv.zip",
			Format:       FormatCSVZip,
			Columns:      []string{"rank", "domain", "pagerank"},
			RankColumn:   "rank",
			DomainColumn: "domain",
			Weight:       1.1,
			Limit:        1_000_000,
		},
		{
			Name:         "CrUX",
			Description:  "Chrome User Experience Report data",
			URL:          "https://raw.githubusercontent.com/zakird/crux-top-lists/main/data/global/current.csv.gz",
			Format:       FormatCSVGz,
			Header:       true,
			RankColumn:   "rank",
			DomainColumn: "origin",
			StripScheme:  true,
			Weight:       1.4,
		},
	}
}
