package rank

import "strings"

// Record is a single (rank, domain) pair from a source list.
type Record struct {
	Rank   int64  `json:"rank" yaml:"rank"`
	Domain string `json:"domain" yaml:"domain"`
}

// NewRecord returns a record with the domain normalized.
func NewRecord(rank int64, domain string) Record {
	return Record{Rank: rank, Domain: NormalizeDomain(domain)}
}

// NormalizeDomain trims surrounding whitespace and lowercases the domain.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// Valid reports whether the record can be scored.
func (r Record) Valid() bool {
	return r.Rank > 0 && NormalizeDomain(r.Domain) != ""
}

// SourceList is one source's ranked domains along with its trust weight.
type SourceList struct {
	Name    string   `json:"name" yaml:"name"`
	Weight  float64  `json:"weight" yaml:"weight"`
	Limit   int      `json:"limit,omitempty" yaml:"limit,omitempty"`
	Records []Record `json:"records,omitempty" yaml:"records,omitempty"`
}

// considered returns the records left after applying the list limit.
func (s SourceList) considered() []Record {
	if s.Limit > 0 && s.Limit < len(s.Records) {
		return s.Records[:s.Limit]
	}
	return s.Records
}

// Entry is one domain in the composite ranking.
type Entry struct {
	Rank           int     `json:"rank" yaml:"rank"`
	Domain         string  `json:"domain" yaml:"domain"`
	CompositeScore float64 `json:"composite_score" yaml:"compositeScore"`
	Appearances    int     `json:"appearances" yaml:"appearances"`
	AvgScore       float64 `json:"avg_score" yaml:"avgScore"`
}

// SourceSummary accounts for what happened to one source's records.
type SourceSummary struct {
	Name       string  `json:"name" yaml:"name"`
	Weight     float64 `json:"weight" yaml:"weight"`
	Records    int     `json:"records" yaml:"records"`
	Considered int     `json:"considered" yaml:"considered"`
	Accepted   int     `json:"accepted" yaml:"accepted"`
	Skipped    int     `json:"skipped" yaml:"skipped"`
}

// Result is the output of a single aggregation.
type Result struct {
	// Entries is the ranking, best first, truncated to the target size.
	Entries []Entry `json:"entries" yaml:"entries"`
	// Sources is in input order.
	Sources []SourceSummary `json:"sources" yaml:"sources"`
	// Domains is the number of distinct valid domains before truncation.
	Domains int `json:"domains" yaml:"domains"`
}
