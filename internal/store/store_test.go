package store_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/gaflat/internal/model"
	"github.com/derickschaefer/gaflat/internal/store"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// testDB opens a fresh isolated database in t.TempDir().
// It is closed and deleted automatically when the test ends.
func testDB(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

const sampleRaw = `{
  "reports": [
    {
      "columnHeader": {
        "dimensions": ["ga:browser"],
        "metricHeader": {"metricHeaderEntries": [{"name": "ga:sessions", "type": "INTEGER"}]}
      },
      "data": {"rows": [
        {"dimensions": ["Chrome"], "metrics": [{"values": ["12"]}]},
        {"dimensions": ["Safari"], "metrics": [{"values": ["7"]}]}
      ]}
    }
  ]
}`

func sampleResponse() *model.ReportResponse {
	return &model.ReportResponse{Reports: []model.Report{{
		DimensionNames:      []string{"ga:browser"},
		MetricHeaderEntries: []model.MetricHeaderEntry{{Name: "ga:sessions", Type: model.MetricTypeInteger}},
		Rows: []model.ReportRow{
			{DimensionValues: []string{"Chrome"}, DateRangeValues: []model.DateRangeValueSet{{Values: []string{"12"}}}},
			{DimensionValues: []string{"Safari"}, DateRangeValues: []model.DateRangeValueSet{{Values: []string{"7"}}}},
		},
	}}}
}

// ─── Open / Path ──────────────────────────────────────────────────────────────

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c", "test.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	_, err = s.PutResponse("weekly", "a.json", []byte(sampleRaw), sampleResponse())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.Open(path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.ListResponses()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "weekly", entries[0].Name)
}

// ─── Names ────────────────────────────────────────────────────────────────────

func TestNormaliseName(t *testing.T) {
	got, err := store.NormaliseName("  Weekly-Browsers ")
	require.NoError(t, err)
	assert.Equal(t, "weekly-browsers", got)

	_, err = store.NormaliseName("   ")
	assert.Error(t, err)
	_, err = store.NormaliseName("two words")
	assert.Error(t, err)
}

// ─── Responses ────────────────────────────────────────────────────────────────

func TestPutGetResponse(t *testing.T) {
	s := testDB(t)

	entry, err := s.PutResponse("Weekly", "a.json", []byte(sampleRaw), sampleResponse())
	require.NoError(t, err)
	assert.Equal(t, "weekly", entry.Name)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, 1, entry.Reports)
	assert.Equal(t, 2, entry.Rows)
	assert.Equal(t, len(sampleRaw), entry.Bytes)
	assert.False(t, entry.SavedAt.IsZero())

	got, raw, err := s.GetResponse("WEEKLY")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, "a.json", got.Source)
	assert.JSONEq(t, sampleRaw, string(raw))
}

func TestGetResponseNotFound(t *testing.T) {
	s := testDB(t)
	_, _, err := s.GetResponse("missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestPutResponseOverwrites(t *testing.T) {
	s := testDB(t)

	first, err := s.PutResponse("weekly", "a.json", []byte(sampleRaw), sampleResponse())
	require.NoError(t, err)
	second, err := s.PutResponse("weekly", "b.json", []byte(`{"reports":[]}`), &model.ReportResponse{})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, raw, err := s.GetResponse("weekly")
	require.NoError(t, err)
	assert.Equal(t, "b.json", got.Source)
	assert.Equal(t, 0, got.Rows)
	assert.JSONEq(t, `{"reports":[]}`, string(raw))

	entries, err := s.ListResponses()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestListResponsesSorted(t *testing.T) {
	s := testDB(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := s.PutResponse(name, "x.json", []byte(sampleRaw), sampleResponse())
		require.NoError(t, err)
	}

	entries, err := s.ListResponses()
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestListResponsesEmpty(t *testing.T) {
	s := testDB(t)
	entries, err := s.ListResponses()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteResponse(t *testing.T) {
	s := testDB(t)
	_, err := s.PutResponse("weekly", "a.json", []byte(sampleRaw), sampleResponse())
	require.NoError(t, err)

	require.NoError(t, s.DeleteResponse("weekly"))
	_, _, err = s.GetResponse("weekly")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.DeleteResponse("weekly"), store.ErrNotFound)
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

func TestStatsCountsEntries(t *testing.T) {
	s := testDB(t)

	stats, err := s.Stats()
	require.NoError(t, err)
	require.Len(t, stats, len(store.AllBuckets))
	assert.Equal(t, 0, stats[0].Count)

	_, err = s.PutResponse("a", "a.json", []byte(sampleRaw), sampleResponse())
	require.NoError(t, err)
	_, err = s.PutResponse("b", "b.json", []byte(sampleRaw), sampleResponse())
	require.NoError(t, err)

	stats, err = s.Stats()
	require.NoError(t, err)
	assert.Equal(t, "responses", stats[0].Name)
	assert.Equal(t, 2, stats[0].Count)
	assert.Greater(t, stats[0].Bytes, int64(0))
}

func TestClearAll(t *testing.T) {
	s := testDB(t)
	_, err := s.PutResponse("a", "a.json", []byte(sampleRaw), sampleResponse())
	require.NoError(t, err)

	require.NoError(t, s.ClearAll())

	entries, err := s.ListResponses()
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Bucket is recreated, so writes still work.
	_, err = s.PutResponse("a", "a.json", []byte(sampleRaw), sampleResponse())
	assert.NoError(t, err)
}

func TestEachTestGetsIsolatedDB(t *testing.T) {
	s1 := testDB(t)
	s2 := testDB(t)
	_, err := s1.PutResponse("only-in-one", "a.json", []byte(sampleRaw), sampleResponse())
	require.NoError(t, err)

	_, _, err = s2.GetResponse("only-in-one")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
