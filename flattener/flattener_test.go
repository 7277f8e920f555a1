package flattener_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/gaflat/flattener"
)

func fixture(t testing.TB, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(b)
}

// ─── ToDelimited ──────────────────────────────────────────────────────────────

func TestToDelimitedEmptyInput(t *testing.T) {
	got, err := flattener.ToDelimited("", ",")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got)
}

func TestToDelimitedNoRows(t *testing.T) {
	got, err := flattener.ToDelimited(fixture(t, "no_rows.json"), ",")
	require.NoError(t, err)
	assert.Equal(t, []string{"\"ga:deviceCategory\",\"ga:sessions\"\n"}, got)
}

func TestToDelimitedNoDimensions(t *testing.T) {
	got, err := flattener.ToDelimited(fixture(t, "no_dimensions.json"), ",")
	require.NoError(t, err)
	assert.Equal(t, []string{"\"ga:sessions\"\n44\n"}, got)
}

func TestToDelimitedMultiCharDelimiter(t *testing.T) {
	got, err := flattener.ToDelimited(fixture(t, "single_dimension_and_metric.json"), "|delimiter|")
	require.NoError(t, err)
	want := `"ga:deviceCategory"|delimiter|"ga:sessions"
"desktop"|delimiter|43
"mobile"|delimiter|1
`
	assert.Equal(t, []string{want}, got)
}

func TestToDelimitedMultipleDimensionsAndMetrics(t *testing.T) {
	got, err := flattener.ToDelimited(fixture(t, "multiple_dimensions_and_metrics.json"), ",")
	require.NoError(t, err)
	want := `"ga:deviceCategory","ga:country","ga:sessions","ga:bounces"
"desktop","Australia",1,1
"desktop","France",39,21
"desktop","United States",3,1
"mobile","Brazil",1,0
`
	assert.Equal(t, []string{want}, got)
}

func TestToDelimitedMultipleReports(t *testing.T) {
	got, err := flattener.ToDelimited(fixture(t, "multiple_reports.json"), ",")
	require.NoError(t, err)
	assert.Equal(t, []string{
		`"ga:deviceCategory","ga:sessions","ga:bounces"
"desktop",25,17
"mobile",2,2
`,
		`"ga:country","ga:sessions","ga:bounces"
"Azerbaijan",1,0
"France",18,11
"Japan",4,4
"Switzerland",1,1
"United States",3,3
`,
	}, got)
}

func TestToDelimitedMultipleDateRanges(t *testing.T) {
	got, err := flattener.ToDelimited(fixture(t, "multiple_date_ranges.json"), ",")
	require.NoError(t, err)
	want := `"ga:browser","ga:avgTimeOnPage","ga:pageviewsPerSession","ga:avgTimeOnPage_2","ga:pageviewsPerSession_2"
"Chrome",108.1733,2.93126,129.7071651,3.60975609
"Edge",51.794117,6.6666667,210.866667,2.875
"Firefox",123.657142,2.09375,75.333333,1.5
`
	assert.Equal(t, []string{want}, got)
}

func TestToDelimitedIsDeterministic(t *testing.T) {
	raw := fixture(t, "multiple_reports.json")
	first, err := flattener.ToDelimited(raw, ";")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := flattener.ToDelimited(raw, ";")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// ─── ToRecords ────────────────────────────────────────────────────────────────

func TestToRecordsEmptyInput(t *testing.T) {
	got, err := flattener.ToRecords("")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got))
}

func TestToRecordsNoRows(t *testing.T) {
	got, err := flattener.ToRecords(fixture(t, "no_rows.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[[]]`, string(got))
}

func TestToRecordsNoDimensions(t *testing.T) {
	got, err := flattener.ToRecords(fixture(t, "no_dimensions.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[[{"ga:sessions":"44"}]]`, string(got))
}

func TestToRecordsSingleDimension(t *testing.T) {
	got, err := flattener.ToRecords(fixture(t, "single_dimension_and_metric.json"))
	require.NoError(t, err)
	assert.Equal(t,
		`[[{"ga:deviceCategory":"desktop","ga:sessions":"43"},{"ga:deviceCategory":"mobile","ga:sessions":"1"}]]`,
		string(got), "records keep header order")
}

func TestToRecordsMultipleReports(t *testing.T) {
	got, err := flattener.ToRecords(fixture(t, "multiple_reports.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		[{"ga:deviceCategory":"desktop","ga:sessions":"25","ga:bounces":"17"},
		 {"ga:deviceCategory":"mobile","ga:sessions":"2","ga:bounces":"2"}],
		[{"ga:country":"Azerbaijan","ga:sessions":"1","ga:bounces":"0"},
		 {"ga:country":"France","ga:sessions":"18","ga:bounces":"11"},
		 {"ga:country":"Japan","ga:sessions":"4","ga:bounces":"4"},
		 {"ga:country":"Switzerland","ga:sessions":"1","ga:bounces":"1"},
		 {"ga:country":"United States","ga:sessions":"3","ga:bounces":"3"}]
	]`, string(got))
}

func TestToRecordsMultipleDateRanges(t *testing.T) {
	got, err := flattener.ToRecords(fixture(t, "multiple_date_ranges.json"))
	require.NoError(t, err)
	assert.Contains(t, string(got),
		`{"ga:browser":"Chrome","ga:avgTimeOnPage":"108.1733","ga:pageviewsPerSession":"2.93126","ga:avgTimeOnPage_2":"129.7071651","ga:pageviewsPerSession_2":"3.60975609"}`)
}

func TestToRecordsWithDecimalValues(t *testing.T) {
	got, err := flattener.ToRecordsWith(fixture(t, "single_dimension_and_metric.json"),
		flattener.Options{Values: flattener.ValueDecimal})
	require.NoError(t, err)
	assert.Equal(t,
		`[[{"ga:deviceCategory":"desktop","ga:sessions":43},{"ga:deviceCategory":"mobile","ga:sessions":1}]]`,
		string(got))
}

func TestToRecordsWithNumberValues(t *testing.T) {
	got, err := flattener.ToRecordsWith(fixture(t, "multiple_date_ranges.json"),
		flattener.Options{Values: flattener.ValueNumber})
	require.NoError(t, err)
	assert.Contains(t, string(got), `"ga:browser":"Edge","ga:avgTimeOnPage":51.794117,`)
	assert.Contains(t, string(got), `"ga:pageviewsPerSession_2":1.5}`)
}

func TestToRecordsWithInvalidMetricValue(t *testing.T) {
	raw := `{"reports":[{"columnHeader":{"metricHeader":{"metricHeaderEntries":[{"name":"ga:sessions","type":"INTEGER"}]}},
		"data":{"rows":[{"metrics":[{"values":["12"]}]},{"metrics":[{"values":["n/a"]}]}]}}]}`

	_, err := flattener.ToRecordsWith(raw, flattener.Options{Values: flattener.ValueNumber})
	require.Error(t, err)
	assert.True(t, errors.Is(err, flattener.ErrInvalidMetricValue))
	assert.False(t, errors.Is(err, flattener.ErrSchemaMismatch))

	// String mode passes the value through untouched.
	got, err := flattener.ToRecords(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `[[{"ga:sessions":"12"},{"ga:sessions":"n/a"}]]`, string(got))
}

func TestToRecordsWithUnknownMode(t *testing.T) {
	raw := fixture(t, "single_dimension_and_metric.json")
	for _, in := range []string{raw, ""} {
		got, err := flattener.ToRecordsWith(in, flattener.Options{Values: "bogus"})
		assert.Nil(t, got)
		assert.ErrorContains(t, err, `invalid value mode "bogus"`)
	}

	got, err := flattener.ToRecordsWith(raw, flattener.Options{})
	require.NoError(t, err)
	want, err := flattener.ToRecords(raw)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got), "zero Options keep raw strings")
}

// ─── Rejection ────────────────────────────────────────────────────────────────

func TestPivotReportRejected(t *testing.T) {
	raw := fixture(t, "pivot.json")

	_, err := flattener.ToDelimited(raw, ",")
	require.Error(t, err)
	assert.True(t, errors.Is(err, flattener.ErrSchemaMismatch))
	assert.Contains(t, err.Error(), "pivot")

	_, err = flattener.ToRecords(raw)
	assert.True(t, errors.Is(err, flattener.ErrSchemaMismatch))
}

func TestMalformedDocumentsRejected(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"reports": [`,
		"unknown key":     `{"reports": [], "kind": "analytics#report"}`,
		"missing reports": `{}`,
		"missing header":  `{"reports":[{"data":{}}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := flattener.ToDelimited(raw, ",")
			assert.True(t, errors.Is(err, flattener.ErrSchemaMismatch), "got %v", err)

			_, err = flattener.ToRecords(raw)
			assert.True(t, errors.Is(err, flattener.ErrSchemaMismatch), "got %v", err)
		})
	}
}

func TestMiscasedFieldNamesRejected(t *testing.T) {
	raw := `{"reports":[{"ColumnHeader":{"MetricHeader":{"MetricHeaderEntries":[{"name":"a","type":"INTEGER"}]}},
		"DATA":{"rows":[{"metrics":[{"values":["1"]}]}]}}]}`

	_, err := flattener.ToDelimited(raw, ",")
	assert.True(t, errors.Is(err, flattener.ErrSchemaMismatch), "got %v", err)

	_, err = flattener.ToRecords(raw)
	assert.True(t, errors.Is(err, flattener.ErrSchemaMismatch), "got %v", err)
}

// ─── Parse ────────────────────────────────────────────────────────────────────

func TestParseKeepsResponseMetadata(t *testing.T) {
	resp, err := flattener.Parse(fixture(t, "multiple_reports.json"))
	require.NoError(t, err)
	require.Len(t, resp.Reports, 2)
	assert.Equal(t, int64(2), resp.QueryCost)
	require.NotNil(t, resp.ResourceQuotasRemaining)
	assert.Equal(t, int64(9998), resp.ResourceQuotasRemaining.HourlyQuotaTokensRemaining)
	assert.Equal(t, 7, resp.RowCount())
}

// ─── Benchmarks ───────────────────────────────────────────────────────────────

// large_report.json holds one report of 2000 rows: three dimensions and three
// metrics over two date ranges.

func BenchmarkToDelimited(b *testing.B) {
	raw := fixture(b, "large_report.json")
	b.SetBytes(int64(len(raw)))
	b.ReportAllocs()
	for b.Loop() {
		if _, err := flattener.ToDelimited(raw, ","); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkToRecords(b *testing.B) {
	raw := fixture(b, "large_report.json")
	b.SetBytes(int64(len(raw)))
	b.ReportAllocs()
	for b.Loop() {
		if _, err := flattener.ToRecords(raw); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkToRecordsNumber(b *testing.B) {
	raw := fixture(b, "large_report.json")
	opts := flattener.Options{Values: flattener.ValueNumber}
	b.SetBytes(int64(len(raw)))
	b.ReportAllocs()
	for b.Loop() {
		if _, err := flattener.ToRecordsWith(raw, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func TestLargeReportShape(t *testing.T) {
	resp, err := flattener.Parse(fixture(t, "large_report.json"))
	require.NoError(t, err)
	require.Len(t, resp.Reports, 1)
	assert.Equal(t, 2000, resp.RowCount())

	out, err := flattener.ToDelimited(fixture(t, "large_report.json"), ",")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out[0], "\n"), "\n")
	require.Len(t, lines, 2001)
	assert.Equal(t, `"ga:browser","ga:country","ga:deviceCategory","ga:sessions","ga:bounces","ga:avgSessionDuration","ga:sessions_2","ga:bounces_2","ga:avgSessionDuration_2"`, lines[0])
}
