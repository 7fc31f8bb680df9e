package data

import (
	"errors"
	"testing"
	"time"

	"github.com/mchmarny/top1m/pkg/rank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult() *rank.Result {
	return &rank.Result{
		Entries: []rank.Entry{
			{Rank: 1, Domain: "b.com", CompositeScore: 0.9166666666666666, Appearances: 2, AvgScore: 0.8333333333333333},
			{Rank: 2, Domain: "a.com", CompositeScore: 0.7333333333333333, Appearances: 2, AvgScore: 0.6666666666666666},
			{Rank: 3, Domain: "c.com", CompositeScore: 0.2, Appearances: 1, AvgScore: 0.2},
		},
		Sources: []rank.SourceSummary{
			{Name: "x", Weight: 1, Records: 2, Considered: 2, Accepted: 2},
			{Name: "y", Weight: 2, Records: 3, Considered: 3, Accepted: 2, Skipped: 1},
		},
		Domains: 3,
	}
}

func TestSaveRun(t *testing.T) {
	db := setupTestDB(t)
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	id, err := SaveRun(db, RunInfo{At: at, TargetSize: 100, Duration: 1500 * time.Millisecond}, testResult())
	require.NoError(t, err)
	assert.Positive(t, id)

	r, err := GetRun(db, id)
	require.NoError(t, err)
	assert.Equal(t, id, r.ID)
	assert.Equal(t, "2025-03-04T05:06:07Z", r.CreatedAt)
	assert.Equal(t, 100, r.TargetSize)
	assert.Equal(t, 3, r.Domains)
	assert.Equal(t, 3, r.Entries)
	assert.Equal(t, 2, r.Sources)
	assert.Equal(t, "1.5s", r.Duration)
}

func TestSaveRun_Errors(t *testing.T) {
	_, err := SaveRun(nil, RunInfo{}, testResult())
	assert.Error(t, err)

	db := setupTestDB(t)
	_, err = SaveRun(db, RunInfo{}, nil)
	assert.Error(t, err)
}

func TestSaveRun_DuplicateRankRollsBack(t *testing.T) {
	db := setupTestDB(t)
	res := testResult()
	res.Entries[1].Rank = 1

	_, err := SaveRun(db, RunInfo{TargetSize: 10}, res)
	require.Error(t, err)

	_, err = GetLatestRunID(db)
	assert.ErrorIs(t, err, ErrRunNotFound)

	state, err := GetDataState(db)
	require.NoError(t, err)
	assert.Zero(t, state["rankings"])
	assert.Zero(t, state["sources"])
}

func TestGetRuns(t *testing.T) {
	db := setupTestDB(t)

	var ids []int64
	for range 3 {
		id, err := SaveRun(db, RunInfo{TargetSize: 10}, testResult())
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := GetRuns(db, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	_, err = GetRuns(db, 0)
	assert.Error(t, err)
	_, err = GetRuns(nil, 1)
	assert.Error(t, err)
}

func TestGetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := GetRun(db, 42)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestGetLatestRunID(t *testing.T) {
	db := setupTestDB(t)

	_, err := GetLatestRunID(db)
	assert.ErrorIs(t, err, ErrRunNotFound)

	first, err := SaveRun(db, RunInfo{TargetSize: 10}, testResult())
	require.NoError(t, err)
	second, err := SaveRun(db, RunInfo{TargetSize: 10}, testResult())
	require.NoError(t, err)
	assert.Greater(t, second, first)

	id, err := GetLatestRunID(db)
	require.NoError(t, err)
	assert.Equal(t, second, id)
}

func TestGetRunSources(t *testing.T) {
	db := setupTestDB(t)
	res := testResult()

	id, err := SaveRun(db, RunInfo{TargetSize: 10}, res)
	require.NoError(t, err)

	list, err := GetRunSources(db, id)
	require.NoError(t, err)
	assert.Equal(t, res.Sources, list)

	list, err = GetRunSources(db, id+1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPruneRuns(t *testing.T) {
	db := setupTestDB(t)

	var ids []int64
	for range 4 {
		id, err := SaveRun(db, RunInfo{TargetSize: 10}, testResult())
		require.NoError(t, err)
		ids = append(ids, id)
	}

	n, err := PruneRuns(db, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = PruneRuns(db, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	runs, err := GetRuns(db, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[3], runs[0].ID)
	assert.Equal(t, ids[2], runs[1].ID)

	list, err := GetRanking(db, ids[0], 0, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	state, err := GetDataState(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), state["runs"])
	assert.Equal(t, int64(4), state["sources"])
	assert.Equal(t, int64(6), state["rankings"])

	n, err = PruneRuns(db, 5)
	require.NoError(t, err)
	assert.Zero(t, n)
}
