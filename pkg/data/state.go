package data

import (
	"database/sql"
	"fmt"
)

var stateQueries = map[string]string{
	"runs":     "SELECT COUNT(*) FROM run",
	"sources":  "SELECT COUNT(*) FROM run_source",
	"rankings": "SELECT COUNT(*) FROM ranking",
	"domains":  "SELECT COUNT(DISTINCT domain) FROM ranking",
}

// GetDataState returns row counts of the run history tables.
func GetDataState(db *sql.DB) (map[string]int64, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	state := make(map[string]int64, len(stateQueries))
	for k, q := range stateQueries {
		var count int64
		if err := db.QueryRow(q).Scan(&count); err != nil {
			return nil, fmt.Errorf("error getting %s count: %w", k, err)
		}
		state[k] = count
	}

	return state, nil
}
