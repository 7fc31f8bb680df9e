package data

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mchmarny/top1m/pkg/rank"
)

const (
	timeFormat = "2006-01-02T15:04:05Z"

	insertRunSQL = `INSERT INTO run (created_at, target_size, domains, entries, sources, duration)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	insertRunSourceSQL = `INSERT INTO run_source
		(run_id, position, name, weight, records, considered, accepted, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	insertRankingSQL = `INSERT INTO ranking
		(run_id, rank, domain, composite_score, appearances, avg_score)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	selectRunsSQL = `SELECT id, created_at, target_size, domains, entries, sources, duration
		FROM run
		ORDER BY id DESC
		LIMIT ?
	`

	selectRunSQL = `SELECT id, created_at, target_size, domains, entries, sources, duration
		FROM run
		WHERE id = ?
	`

	selectLatestRunIDSQL = `SELECT MAX(id) FROM run`

	selectRunSourcesSQL = `SELECT name, weight, records, considered, accepted, skipped
		FROM run_source
		WHERE run_id = ?
		ORDER BY position
	`

	selectPrunableRunsSQL = `SELECT id FROM run ORDER BY id DESC LIMIT -1 OFFSET ?`

	deleteRunSQL        = `DELETE FROM run WHERE id = ?`
	deleteRunSourcesSQL = `DELETE FROM run_source WHERE run_id = ?`
	deleteRankingSQL    = `DELETE FROM ranking WHERE run_id = ?`

	// rows between progress logs while persisting a ranking
	progressInterval = 100_000
)

// Run describes a single persisted ranking build.
type Run struct {
	ID         int64  `json:"id" yaml:"id"`
	CreatedAt  string `json:"created_at" yaml:"createdAt"`
	TargetSize int    `json:"target_size" yaml:"targetSize"`
	Domains    int    `json:"domains" yaml:"domains"`
	Entries    int    `json:"entries" yaml:"entries"`
	Sources    int    `json:"sources" yaml:"sources"`
	Duration   string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// RunInfo carries the build metadata that is not part of the ranking result.
type RunInfo struct {
	At         time.Time
	TargetSize int
	Duration   time.Duration
}

// SaveRun persists the result of a build along with its per-source summary
// and returns the ID of the new run. Everything is written in one transaction.
func SaveRun(db *sql.DB, info RunInfo, res *rank.Result) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	if res == nil {
		return 0, errors.New("result required")
	}

	at := info.At
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	id, err := saveRun(tx, info, at, res)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return 0, fmt.Errorf("failed to rollback transaction: %w (cause: %w)", rbErr, err)
		}
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("run saved", "id", id, "entries", len(res.Entries))
	return id, nil
}

func saveRun(tx *sql.Tx, info RunInfo, at time.Time, res *rank.Result) (int64, error) {
	var duration string
	if info.Duration > 0 {
		duration = info.Duration.Round(time.Millisecond).String()
	}

	r, err := tx.Exec(insertRunSQL, at.UTC().Format(timeFormat), info.TargetSize,
		res.Domains, len(res.Entries), len(res.Sources), duration)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	srcStmt, err := tx.Prepare(insertRunSourceSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare run source statement: %w", err)
	}
	defer srcStmt.Close()

	for i, s := range res.Sources {
		if _, err = srcStmt.Exec(id, i, s.Name, s.Weight, s.Records,
			s.Considered, s.Accepted, s.Skipped); err != nil {
			return 0, fmt.Errorf("failed to insert run source %s: %w", s.Name, err)
		}
	}

	rankStmt, err := tx.Prepare(insertRankingSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare ranking statement: %w", err)
	}
	defer rankStmt.Close()

	for i, e := range res.Entries {
		if _, err = rankStmt.Exec(id, e.Rank, e.Domain, e.CompositeScore,
			e.Appearances, e.AvgScore); err != nil {
			return 0, fmt.Errorf("failed to insert ranking entry %s: %w", e.Domain, err)
		}
		if (i+1)%progressInterval == 0 {
			slog.Debug("saving ranking", "run", id, "saved", i+1, "total", len(res.Entries))
		}
	}

	return id, nil
}

// GetRuns returns up to limit most recent runs, newest first.
func GetRuns(db *sql.DB, limit int) ([]*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit: %d", limit)
	}

	rows, err := db.Query(selectRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	list := make([]*Run, 0)
	for rows.Next() {
		r := &Run{}
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.TargetSize, &r.Domains,
			&r.Entries, &r.Sources, &r.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		list = append(list, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run rows: %w", err)
	}

	return list, nil
}

// GetRun returns a single run or ErrRunNotFound.
func GetRun(db *sql.DB, id int64) (*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	r := &Run{}
	err := db.QueryRow(selectRunSQL, id).Scan(&r.ID, &r.CreatedAt, &r.TargetSize,
		&r.Domains, &r.Entries, &r.Sources, &r.Duration)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to query run %d: %w", id, err)
	}

	return r, nil
}

// GetLatestRunID returns the ID of the most recent run or ErrRunNotFound
// when nothing has been saved yet.
func GetLatestRunID(db *sql.DB) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}

	var id sql.NullInt64
	if err := db.QueryRow(selectLatestRunIDSQL).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to query latest run: %w", err)
	}
	if !id.Valid {
		return 0, ErrRunNotFound
	}

	return id.Int64, nil
}

// GetRunSources returns the per-source summary of a run in input order.
func GetRunSources(db *sql.DB, runID int64) ([]rank.SourceSummary, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectRunSourcesSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run sources: %w", err)
	}
	defer rows.Close()

	list := make([]rank.SourceSummary, 0)
	for rows.Next() {
		var s rank.SourceSummary
		if err := rows.Scan(&s.Name, &s.Weight, &s.Records, &s.Considered,
			&s.Accepted, &s.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan run source row: %w", err)
		}
		list = append(list, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run source rows: %w", err)
	}

	return list, nil
}

// PruneRuns deletes all but the keep most recent runs and returns the
// number of runs removed. A keep of zero or less disables pruning.
func PruneRuns(db *sql.DB, keep int) (int, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	if keep <= 0 {
		return 0, nil
	}

	ids, err := prunableRuns(db, keep)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, id := range ids {
		for _, q := range []string{deleteRankingSQL, deleteRunSourcesSQL, deleteRunSQL} {
			if _, err := tx.Exec(q, id); err != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					return 0, fmt.Errorf("failed to rollback transaction: %w (cause: %w)", rbErr, err)
				}
				return 0, fmt.Errorf("failed to delete run %d: %w", id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("runs pruned", "deleted", len(ids), "kept", keep)
	return len(ids), nil
}

func prunableRuns(db *sql.DB, keep int) ([]int64, error) {
	rows, err := db.Query(selectPrunableRunsSQL, keep)
	if err != nil {
		return nil, fmt.Errorf("failed to query prunable runs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run ids: %w", err)
	}

	return ids, nil
}
