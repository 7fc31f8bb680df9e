package data

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mchmarny/top1m/pkg/rank"
)

const (
	selectRankingSQL = `SELECT rank, domain, composite_score, appearances, avg_score
		FROM ranking
		WHERE run_id = ?
		ORDER BY rank
		LIMIT ? OFFSET ?
	`

	selectDomainHistorySQL = `SELECT r.id, r.created_at, k.rank, k.domain,
			k.composite_score, k.appearances, k.avg_score
		FROM ranking k
		JOIN run r ON k.run_id = r.id
		WHERE k.domain = ?
		ORDER BY r.id DESC
		LIMIT ?
	`
)

// DomainRank is the position of a domain in a single run.
type DomainRank struct {
	RunID     int64      `json:"run_id" yaml:"runID"`
	CreatedAt string     `json:"created_at" yaml:"createdAt"`
	Entry     rank.Entry `json:"entry" yaml:"entry"`
}

// GetRanking returns a page of the ranking of the given run ordered by rank.
func GetRanking(db *sql.DB, runID int64, offset, limit int) ([]rank.Entry, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if offset < 0 {
		return nil, fmt.Errorf("invalid offset: %d", offset)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit: %d", limit)
	}

	rows, err := db.Query(selectRankingSQL, runID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking: %w", err)
	}
	defer rows.Close()

	list := make([]rank.Entry, 0, min(limit, 1024))
	for rows.Next() {
		var e rank.Entry
		if err := rows.Scan(&e.Rank, &e.Domain, &e.CompositeScore,
			&e.Appearances, &e.AvgScore); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		list = append(list, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ranking rows: %w", err)
	}

	return list, nil
}

// GetDomainHistory returns the positions of a domain across the most recent
// runs it appeared in, newest first. The domain is normalized before lookup.
func GetDomainHistory(db *sql.DB, domain string, limit int) ([]*DomainRank, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	d := rank.NormalizeDomain(domain)
	if d == "" {
		return nil, errors.New("domain required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit: %d", limit)
	}

	rows, err := db.Query(selectDomainHistorySQL, d, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query domain history: %w", err)
	}
	defer rows.Close()

	list := make([]*DomainRank, 0)
	for rows.Next() {
		r := &DomainRank{}
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &r.Entry.Rank, &r.Entry.Domain,
			&r.Entry.CompositeScore, &r.Entry.Appearances, &r.Entry.AvgScore); err != nil {
			return nil, fmt.Errorf("failed to scan domain history row: %w", err)
		}
		list = append(list, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domain history rows: %w", err)
	}

	return list, nil
}
