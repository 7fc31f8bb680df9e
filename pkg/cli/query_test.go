package cli

import (
	"encoding/json"
	"testing"

	"github.com/mchmarny/top1m/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRanking(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "ranking")
	assert.ErrorIs(t, err, data.ErrRunNotFound)

	_, err = env.run(t, "", "build")
	require.NoError(t, err)

	out, err := env.run(t, "", "ranking", "--limit", "1", "--offset", "1")
	require.NoError(t, err)

	var page RankingPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, 1, page.Offset)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "a.com", page.Entries[0].Domain)
	assert.Equal(t, 2, page.Entries[0].Rank)
	assert.Len(t, page.Sources, 2)

	out, err = env.run(t, "", "--format", "text", "ranking", "--run", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "b.com")

	_, err = env.run(t, "", "ranking", "--run", "99")
	assert.ErrorIs(t, err, data.ErrRunNotFound)
}

func TestRuns(t *testing.T) {
	env := newTestEnv(t)

	for range 2 {
		_, err := env.run(t, "", "build")
		require.NoError(t, err)
	}

	out, err := env.run(t, "", "runs", "--limit", "1")
	require.NoError(t, err)

	var list []*data.Run
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, 2, list[0].Entries)

	out, err = env.run(t, "", "--format", "text", "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "DURATION")
}

func TestDomain(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "build")
	require.NoError(t, err)

	out, err := env.run(t, "", "domain", "--name", "A.COM")
	require.NoError(t, err)

	var list []*data.DomainRank
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Entry.Rank)

	_, err = env.run(t, "", "domain")
	assert.Error(t, err)
}
