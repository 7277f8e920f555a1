package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/derickschaefer/gaflat/internal/flatten"
	"github.com/derickschaefer/gaflat/internal/model"
)

// ValueMode selects how metric values appear in records.
// Dimension values are always strings.
type ValueMode string

const (
	// ValueString keeps every value as the raw string from the response.
	ValueString ValueMode = "string"
	// ValueNumber parses metric values and emits them as float64.
	ValueNumber ValueMode = "number"
	// ValueDecimal parses metric values and emits the exact decimal as an
	// unquoted JSON number.
	ValueDecimal ValueMode = "decimal"
)

// ParseValueMode maps a flag value to a ValueMode. Empty means ValueString.
func ParseValueMode(s string) (ValueMode, error) {
	switch m := ValueMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ValueString, nil
	case ValueString, ValueNumber, ValueDecimal:
		return m, nil
	default:
		return "", fmt.Errorf("invalid value mode %q: expected string|number|decimal", s)
	}
}

// ErrInvalidMetricValue is matched by every *ValueError.
var ErrInvalidMetricValue = errors.New("invalid metric value")

// ValueError reports a metric value that could not be parsed as a number.
type ValueError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: row %d column %q: %q is not a number", ErrInvalidMetricValue, e.Row, e.Column, e.Value)
}

func (e *ValueError) Is(target error) bool { return target == ErrInvalidMetricValue }

func (e *ValueError) Unwrap() error { return e.Err }

// Field is one key/value pair of a Record.
type Field struct {
	Key   string
	Value interface{}
}

// Record is an ordered JSON object. Keys marshal in insertion order so
// output never depends on map iteration.
type Record []Field

// Set stores value under key, replacing an existing key in place.
func (r *Record) Set(key string, value interface{}) {
	for i := range *r {
		if (*r)[i].Key == key {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (r Record) Get(key string) (interface{}, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the record's keys in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// MarshalJSON writes the record as a JSON object in key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Records renders report as one Record per row, keyed by ResolveHeaders.
// In the typed modes a metric value that is not a number fails the whole
// report.
func Records(report *model.Report, mode ValueMode) ([]Record, error) {
	mode, err := ParseValueMode(string(mode))
	if err != nil {
		return nil, err
	}
	headers := flatten.ResolveHeaders(report)
	nDims := len(report.DimensionNames)
	out := make([]Record, 0, len(report.Rows))

	for i := range report.Rows {
		values := flatten.FlattenRow(&report.Rows[i])
		rec := make(Record, 0, len(headers))
		for j, h := range headers {
			if j >= len(values) {
				break
			}
			if j < nDims || mode == ValueString {
				rec.Set(h, values[j])
				continue
			}
			typed, err := typedValue(values[j], mode)
			if err != nil {
				return nil, &ValueError{Row: i, Column: h, Value: values[j], Err: err}
			}
			rec.Set(h, typed)
		}
		out = append(out, rec)
	}
	return out, nil
}

// RecordsAll renders each report of resp independently, in order.
func RecordsAll(resp *model.ReportResponse, mode ValueMode) ([][]Record, error) {
	out := make([][]Record, len(resp.Reports))
	for i := range resp.Reports {
		recs, err := Records(&resp.Reports[i], mode)
		if err != nil {
			return nil, fmt.Errorf("report %d: %w", i, err)
		}
		out[i] = recs
	}
	return out, nil
}

func typedValue(raw string, mode ValueMode) (interface{}, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if mode == ValueDecimal {
		return json.Number(d.String()), nil
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s overflows float64", raw)
	}
	return f, nil
}
