package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/projectwatch/internal/model"
)

func TestNewPreservesOrder(t *testing.T) {
	cat, err := New([]model.SourceDefinition{
		{ID: "b", TrustScore: 50},
		{ID: "a", TrustScore: 60},
		{ID: "c", TrustScore: 70},
	})
	require.NoError(t, err)

	all := cat.All()
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
	assert.Equal(t, "c", all[2].ID)
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]model.SourceDefinition{{ID: "x"}, {ID: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewRejectsTrustOutOfRange(t *testing.T) {
	_, err := New([]model.SourceDefinition{{ID: "x", TrustScore: 101}})
	require.Error(t, err)
}

func TestGet(t *testing.T) {
	cat, err := New([]model.SourceDefinition{{ID: "x", Name: "X Feed", TrustScore: 80}})
	require.NoError(t, err)

	src, ok := cat.Get("x")
	require.True(t, ok)
	assert.Equal(t, "X Feed", src.Name)

	_, ok = cat.Get("missing")
	assert.False(t, ok)
}

func TestAllReturnsCopy(t *testing.T) {
	cat, err := New([]model.SourceDefinition{{ID: "x", TrustScore: 80}})
	require.NoError(t, err)

	all := cat.All()
	all[0].ID = "mutated"

	src, ok := cat.Get("x")
	require.True(t, ok)
	assert.Equal(t, "x", src.ID)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	data := `sources:
  - id: open-data
    name: Open Data Portal
    category: government
    trust_score: 80
    strategy: api
    auth: api_key
    frequency: daily
    endpoint: https://example.org/projects
    field_mapping:
      pid: id
      title: name
    rules:
      - field: pid
        kind: required
        message: pid is required
    status: active
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, cat.Len())

	src, ok := cat.Get("open-data")
	require.True(t, ok)
	assert.Equal(t, model.StrategyAPI, src.Strategy)
	assert.Equal(t, model.AuthAPIKey, src.Auth)
	assert.Equal(t, "id", src.FieldMapping["pid"])
	require.Len(t, src.Rules, 1)
	assert.Equal(t, model.RuleRequired, src.Rules[0].Kind)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile("does/not/exist.yaml")
	require.Error(t, err)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("sources: []\n"), 0o644))
	_, err = LoadFile(empty)
	require.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	cat := Default()
	require.Equal(t, 4, cat.Len())

	strategies := map[model.ExtractionStrategy]bool{}
	for _, src := range cat.All() {
		strategies[src.Strategy] = true
		assert.NotEmpty(t, src.FieldMapping, "source %s has no field mapping", src.ID)
	}
	assert.True(t, strategies[model.StrategyAPI])
	assert.True(t, strategies[model.StrategyScraping])
	assert.True(t, strategies[model.StrategyFile])
	assert.True(t, strategies[model.StrategyManual])
}
