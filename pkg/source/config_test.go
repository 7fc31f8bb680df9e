package source

import (
	"testing"

	"github.com/mchmarny/top1m/pkg/rank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Valid(t *testing.T) {
	list := Defaults()
	require.Len(t, list, 6)
	require.NoError(t, ValidateAll(list))

	names := make([]string, 0, len(list))
	for _, c := range list {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Tranco", "Cisco_Umbrella", "Majestic", "BuiltWith", "DomCop", "CrUX"}, names)
}

func TestDefaults_FreshCopy(t *testing.T) {
	a := Defaults()
	a[0].Weight = 99
	b := Defaults()
	assert.Equal(t, 1.5, b[0].Weight)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Name:         "test",
			Path:         "/tmp/list.csv",
			Format:       FormatCSV,
			Columns:      []string{"rank", "domain"},
			RankColumn:   "rank",
			DomainColumn: "domain",
			Weight:       1,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no name", func(c *Config) { c.Name = "" }},
		{"no location", func(c *Config) { c.Path = "" }},
		{"bad url", func(c *Config) { c.Path = ""; c.URL = "not a url" }},
		{"bad format", func(c *Config) { c.Format = "xlsx" }},
		{"zero weight", func(c *Config) { c.Weight = 0 }},
		{"negative weight", func(c *Config) { c.Weight = -2 }},
		{"negative limit", func(c *Config) { c.Limit = -1 }},
		{"no rank column", func(c *Config) { c.RankColumn = "" }},
		{"rank column not in columns", func(c *Config) { c.RankColumn = "pos" }},
		{"domain column not in columns", func(c *Config) { c.Columns = []string{"rank"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, rank.ErrConfiguration)
		})
	}

	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), rank.ErrConfiguration)
}

func TestConfig_ValidateHeaderedNeedsNoColumns(t *testing.T) {
	c := &Config{
		Name:         "headered",
		URL:          "https://example.com/list.csv",
		Format:       FormatCSV,
		Header:       true,
		RankColumn:   "GlobalRank",
		DomainColumn: "Domain",
		Weight:       1.2,
	}
	assert.NoError(t, c.Validate())
}

func TestValidateAll(t *testing.T) {
	assert.ErrorIs(t, ValidateAll(nil), rank.ErrConfiguration)

	list := Defaults()
	list = append(list, Defaults()[0])
	assert.ErrorIs(t, ValidateAll(list), rank.ErrConfiguration)
}

func TestSelect(t *testing.T) {
	list := Defaults()
	list[1].Disabled = true

	enabled, err := Select(list)
	require.NoError(t, err)
	assert.Len(t, enabled, 5)

	picked, err := Select(list, "CrUX", "Cisco_Umbrella")
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "Cisco_Umbrella", picked[0].Name)
	assert.Equal(t, "CrUX", picked[1].Name)

	_, err = Select(list, "Alexa")
	assert.ErrorIs(t, err, rank.ErrConfiguration)
}
