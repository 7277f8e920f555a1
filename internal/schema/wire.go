package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/derickschaefer/gaflat/internal/model"
)

// Wire types mirror the API's camelCase JSON. Pointers and nil slices keep
// "absent" distinguishable from "empty" so the validator can enforce presence.

type wireResponse struct {
	Reports                 []*wireReport `json:"reports" validate:"required,dive,required"`
	QueryCost               int64         `json:"queryCost"`
	ResourceQuotasRemaining *wireQuotas   `json:"resourceQuotasRemaining"`
}

type wireQuotas struct {
	DailyQuotaTokensRemaining  int64 `json:"dailyQuotaTokensRemaining"`
	HourlyQuotaTokensRemaining int64 `json:"hourlyQuotaTokensRemaining"`
}

type wireReport struct {
	ColumnHeader  *wireColumnHeader `json:"columnHeader" validate:"required"`
	Data          *wireReportData   `json:"data" validate:"required"`
	NextPageToken string            `json:"nextPageToken"`
}

type wireColumnHeader struct {
	Dimensions   []string          `json:"dimensions"`
	MetricHeader *wireMetricHeader `json:"metricHeader" validate:"required"`
}

type wireMetricHeader struct {
	MetricHeaderEntries []*wireMetricHeaderEntry `json:"metricHeaderEntries" validate:"required,min=1,dive,required"`
	PivotHeaders        jsoniter.RawMessage      `json:"pivotHeaders"`
}

type wireMetricHeaderEntry struct {
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"required,metric_type"`
}

type wireReportData struct {
	Rows               []*wireReportRow       `json:"rows" validate:"omitempty,dive,required"`
	Totals             []*wireDateRangeValues `json:"totals" validate:"omitempty,dive,required"`
	Minimums           []*wireDateRangeValues `json:"minimums" validate:"omitempty,dive,required"`
	Maximums           []*wireDateRangeValues `json:"maximums" validate:"omitempty,dive,required"`
	RowCount           int64                  `json:"rowCount"`
	SamplesReadCounts  []string               `json:"samplesReadCounts"`
	SamplingSpaceSizes []string               `json:"samplingSpaceSizes"`
	IsDataGolden       bool                   `json:"isDataGolden"`
	DataLastRefreshed  string                 `json:"dataLastRefreshed"`
}

type wireReportRow struct {
	Dimensions []string               `json:"dimensions"`
	Metrics    []*wireDateRangeValues `json:"metrics" validate:"required,min=1,dive,required"`
}

type wireDateRangeValues struct {
	Values            []string            `json:"values" validate:"required"`
	PivotValueRegions jsoniter.RawMessage `json:"pivotValueRegions"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("metric_type", validateMetricType); err != nil {
		panic(fmt.Sprintf("schema: registering metric_type validation: %v", err))
	}
	return v
}

func validateMetricType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, t := range model.MetricTypes {
		if string(t) == value {
			return true
		}
	}
	return false
}

// validateRequired runs the struct tags and reports the first failure.
func validateRequired(w *wireResponse) error {
	err := validate.Struct(w)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Reason: err.Error(), Err: err}
	}
	fe := verrs[0]
	return mismatch(fieldPath(fe.Namespace()), "%s", describe(fe))
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing required field"
	case "min":
		return "must not be empty"
	case "metric_type":
		return fmt.Sprintf("unsupported metric type %q", fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
