// Package dataset loads labeled training records for the pass/fail model.
// A dataset is a CSV resource with a header row and the columns study_hours,
// attendance and passed, plus an optional name column that is ignored for
// training. Sources can be local files or HTTP(S) URLs.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"student-predictor/internal/common"
)

// ErrEmptyDataset is returned when zero usable rows remain after validation.
var ErrEmptyDataset = errors.New("dataset contains no usable rows")

// FormatError reports a structurally broken dataset: missing columns or a
// field that does not parse. Out-of-range values are not format errors; those
// rows are rejected individually instead.
type FormatError struct {
	Line  int
	Field string
	Cause error
}

func (e *FormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("dataset format error at line %d, field %q: %v", e.Line, e.Field, e.Cause)
	}
	return fmt.Sprintf("dataset format error at line %d: %v", e.Line, e.Cause)
}

func (e *FormatError) Unwrap() error { return e.Cause }

// TrainingRecord is one labeled training example. Immutable once loaded.
type TrainingRecord struct {
	StudyHours float64
	Attendance float64
	Passed     bool
}

// Loader reads training datasets from local files or remote URLs.
type Loader struct {
	rest *resty.Client
}

// NewLoader creates a loader. The timeout applies to remote fetches only.
func NewLoader(timeout time.Duration) *Loader {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Loader{rest: r}
}

// Load reads and validates the dataset at source. It returns the validated
// records together with the number of rows rejected for out-of-range values.
// Structural problems fail the whole load with a *FormatError; a dataset with
// no valid rows fails with ErrEmptyDataset.
func (l *Loader) Load(source string) ([]TrainingRecord, int, error) {
	r, err := l.open(source)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	return Parse(r)
}

func (l *Loader) open(source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := l.rest.R().Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetch dataset %s: %w", source, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch dataset %s: unexpected status %s", source, resp.Status())
		}
		return io.NopCloser(bytes.NewReader(resp.Body())), nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", source, err)
	}
	return f, nil
}

// Parse reads CSV training data from r. Exposed separately so callers with
// in-memory data (tests, uploads) can skip the source plumbing.
func Parse(r io.Reader) ([]TrainingRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows are validated per-line below
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, &FormatError{Line: 1, Cause: fmt.Errorf("read header: %w", err)}
	}

	indices := make(map[string]int, len(header))
	for i, col := range header {
		indices[strings.ToLower(strings.TrimSpace(col))] = i
	}

	hoursIdx, ok := indices[common.FeatureStudyHours]
	if !ok {
		return nil, 0, &FormatError{Line: 1, Field: common.FeatureStudyHours, Cause: errors.New("column missing")}
	}
	attIdx, ok := indices[common.FeatureAttendance]
	if !ok {
		return nil, 0, &FormatError{Line: 1, Field: common.FeatureAttendance, Cause: errors.New("column missing")}
	}
	passIdx, ok := indices["passed"]
	if !ok {
		return nil, 0, &FormatError{Line: 1, Field: "passed", Cause: errors.New("column missing")}
	}

	var records []TrainingRecord
	rejected := 0
	line := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, 0, &FormatError{Line: line, Cause: err}
		}

		if len(row) <= hoursIdx || len(row) <= attIdx || len(row) <= passIdx {
			return nil, 0, &FormatError{Line: line, Cause: fmt.Errorf("expected at least %d columns, got %d", len(header), len(row))}
		}

		hours, err := strconv.ParseFloat(strings.TrimSpace(row[hoursIdx]), 64)
		if err != nil {
			return nil, 0, &FormatError{Line: line, Field: common.FeatureStudyHours, Cause: err}
		}
		attendance, err := strconv.ParseFloat(strings.TrimSpace(row[attIdx]), 64)
		if err != nil {
			return nil, 0, &FormatError{Line: line, Field: common.FeatureAttendance, Cause: err}
		}
		passed, err := parseLabel(strings.TrimSpace(row[passIdx]))
		if err != nil {
			return nil, 0, &FormatError{Line: line, Field: "passed", Cause: err}
		}

		// Out-of-range rows are rejected individually, never coerced.
		if hours < common.MinStudyHours || attendance < common.MinAttendance || attendance > common.MaxAttendance {
			rejected++
			log.Warn().
				Int("line", line).
				Float64("study_hours", hours).
				Float64("attendance", attendance).
				Msg("rejecting out-of-range training row")
			continue
		}

		records = append(records, TrainingRecord{
			StudyHours: hours,
			Attendance: attendance,
			Passed:     passed,
		})
	}

	if len(records) == 0 {
		return nil, rejected, ErrEmptyDataset
	}

	log.Info().
		Int("rows", len(records)).
		Int("rejected", rejected).
		Msg("dataset loaded")

	return records, rejected, nil
}

func parseLabel(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "1.0", "true", "pass", "yes":
		return true, nil
	case "0", "0.0", "false", "fail", "no":
		return false, nil
	}
	return strconv.ParseBool(v)
}
