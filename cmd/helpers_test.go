package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/gaflat/internal/config"
	"github.com/derickschaefer/gaflat/internal/model"
	"github.com/derickschaefer/gaflat/internal/render"
	"github.com/derickschaefer/gaflat/internal/schema"
)

const browserDoc = `{"reports":[{"columnHeader":{"dimensions":["ga:browser"],
"metricHeader":{"metricHeaderEntries":[{"name":"ga:sessions","type":"INTEGER"}]}},
"data":{"rows":[{"dimensions":["Chrome"],"metrics":[{"values":["12"]}]}]},
"nextPageToken":"1000"}]}`

func writeDoc(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestResolveOptionsDefaults(t *testing.T) {
	opts, err := resolveOptions(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, render.FormatDelimited, opts.Format)
	assert.Equal(t, ",", opts.Delimiter)
	assert.Equal(t, render.ValueString, opts.Values)
}

func TestResolveOptionsTabDelimiter(t *testing.T) {
	opts, err := resolveOptions(&config.Config{Format: "delimited", Delimiter: `\t`, Values: "decimal"})
	require.NoError(t, err)
	assert.Equal(t, "\t", opts.Delimiter)
	assert.Equal(t, render.ValueDecimal, opts.Values)
}

func TestResolveOptionsRejectsUnknown(t *testing.T) {
	_, err := resolveOptions(&config.Config{Format: "xml"})
	assert.ErrorContains(t, err, `unknown format "xml"`)

	_, err = resolveOptions(&config.Config{Format: "json", Values: "bignum"})
	assert.Error(t, err)
}

func TestConvertInputsPreservesOrder(t *testing.T) {
	good := writeDoc(t, "good.json", browserDoc)
	bad := writeDoc(t, "bad.json", `{"reports":[{"columnHeader":{}}], "extra": 1}`)
	empty := writeDoc(t, "empty.json", "  \n")

	out := convertInputs([]string{bad, good, empty, good}, strings.NewReader(""), 2)
	require.Len(t, out, 4)

	assert.True(t, errors.Is(out[0].Err, schema.ErrSchemaMismatch))
	assert.Contains(t, out[0].Err.Error(), bad)

	require.NoError(t, out[1].Err)
	assert.Equal(t, good, out[1].Source.Name)
	require.Len(t, out[1].Resp.Reports, 1)

	require.NoError(t, out[2].Err)
	assert.Empty(t, out[2].Resp.Reports)

	require.NoError(t, out[3].Err)
}

func TestConvertInputsReadsStdin(t *testing.T) {
	out := convertInputs([]string{"-"}, strings.NewReader(browserDoc), 0)
	require.Len(t, out, 1)
	require.NoError(t, out[0].Err)
	assert.Equal(t, "stdin", out[0].Source.Name)
	assert.Equal(t, 1, out[0].Resp.RowCount())
}

func TestConvertInputsMissingFile(t *testing.T) {
	out := convertInputs([]string{filepath.Join(t.TempDir(), "nope.json")}, nil, 1)
	require.Len(t, out, 1)
	assert.ErrorContains(t, out[0].Err, "opening input")
}

func TestPageWarnings(t *testing.T) {
	resp := &model.ReportResponse{Reports: []model.Report{{}, {NextPageToken: "abc"}}}
	got := pageWarnings("file.json", resp)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "report 2")
	assert.Contains(t, got[0], `"abc"`)
}

func TestBuildReportsResultCountsRows(t *testing.T) {
	out := convertInputs([]string{"-"}, strings.NewReader(browserDoc), 1)
	require.NoError(t, out[0].Err)

	res := buildReportsResult("convert", "stdin", out[0].Resp.Reports, time.Now())
	assert.Equal(t, model.KindReports, res.Kind)
	assert.Equal(t, 1, res.Stats.Reports)
	assert.Equal(t, 1, res.Stats.Rows)
}

func TestSetConfigKey(t *testing.T) {
	f := config.Template()
	require.NoError(t, setConfigKey(&f, "delimiter", "|"))
	require.NoError(t, setConfigKey(&f, "values", "number"))
	require.NoError(t, setConfigKey(&f, "concurrency", "8"))
	assert.Equal(t, "|", f.Delimiter)
	assert.Equal(t, "number", f.Values)
	assert.Equal(t, 8, f.Concurrency)

	assert.Error(t, setConfigKey(&f, "format", "xml"))
	assert.Error(t, setConfigKey(&f, "concurrency", "-1"))
	assert.ErrorContains(t, setConfigKey(&f, "api_key", "x"), "unknown config key")
}

func TestStdinCount(t *testing.T) {
	assert.Equal(t, 2, stdinCount([]string{"-", "a.json", "-"}))
	assert.Equal(t, 0, stdinCount([]string{"a.json"}))
}
