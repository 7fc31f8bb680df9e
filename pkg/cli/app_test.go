package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mchmarny/top1m/pkg/config"
	"github.com/mchmarny/top1m/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	initLogging(false)
	os.Exit(m.Run())
}

type testEnv struct {
	dir    string
	db     string
	config string
}

// newTestEnv writes two local headerless lists and a config pointing at them.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	a := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(a, []byte("1,a.com\n2,b.com\n"), 0o600))
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(b, []byte("1,b.com\n2,a.com\n"), 0o600))

	c := config.Default()
	c.RequestInterval = 0
	c.OutputDir = filepath.Join(dir, "out")
	c.Sources = []*source.Config{
		testSource("A", a, 1),
		testSource("B", b, 2),
	}
	require.NoError(t, config.Save(dir, c))

	return &testEnv{
		dir:    dir,
		db:     filepath.Join(dir, "test.db"),
		config: filepath.Join(dir, config.FileName),
	}
}

func testSource(name, path string, weight float64) *source.Config {
	return &source.Config{
		Name:         name,
		Path:         path,
		Format:       source.FormatCSV,
		Columns:      []string{"rank", "domain"},
		RankColumn:   "rank",
		DomainColumn: "domain",
		Weight:       weight,
	}
}

func (e *testEnv) run(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(in)

	full := append([]string{appName, "--db", e.db, "--config", e.config}, args...)
	err := app.Run(full)
	return out.String(), err
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{
		"":     formatJSON,
		"json": formatJSON,
		"yml":  formatYAML,
		"yaml": formatYAML,
		"text": formatText,
	} {
		got, err := parseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseFormat("xml")
	assert.Error(t, err)
}

func TestApp_InvalidFormat(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "--format", "xml", "sources")
	assert.Error(t, err)
}

func TestApp_MissingConfig(t *testing.T) {
	env := newTestEnv(t)
	env.config = filepath.Join(env.dir, "missing.yaml")
	_, err := env.run(t, "", "sources")
	assert.Error(t, err)
}

func TestApp_DefaultConfigCreated(t *testing.T) {
	env := newTestEnv(t)
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out

	require.NoError(t, app.Run([]string{appName, "--db", env.db, "sources"}))
	assert.FileExists(t, filepath.Join(env.dir, ".top1m", config.FileName))

	var list []*source.Config
	require.NoError(t, json.Unmarshal(out.Bytes(), &list))
	assert.Len(t, list, len(source.Defaults()))
}

func TestSources(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "sources")
	require.NoError(t, err)
	var list []*source.Config
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Name)

	out, err = env.run(t, "", "--format", "text", "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "a.csv")

	out, err = env.run(t, "", "--format", "yaml", "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "name: B")
}
