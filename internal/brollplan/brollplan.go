// Package brollplan parses the cutaway plan CSV that drives segment
// planning. The file needs a header row naming at least start_sec, end_sec,
// type and search_query; fade_in and fade_out columns are optional.
package brollplan

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"clipforge/internal/services"
	"clipforge/internal/timeline"
)

// defaultFadeSeconds applies when a plan row leaves the fade columns blank.
const defaultFadeSeconds = 0.5

var requiredColumns = []string{"start_sec", "end_sec", "type", "search_query"}

// Load reads a plan file and returns its requests sorted by start time.
func Load(path string) ([]timeline.BrollRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "plan", "broll-csv", path, err)
		}
		return nil, services.Wrap(services.ErrValidation, "plan", "broll-csv", path, err)
	}
	defer f.Close()

	requests, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return requests, nil
}

// Parse reads plan rows from r. Requests come back sorted by start time;
// overlap checking stays with the segment planner.
func Parse(r io.Reader) ([]timeline.BrollRequest, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, services.Wrap(services.ErrEmptyInput, "plan", "broll-csv", "file is empty", nil)
		}
		return nil, services.Wrap(services.ErrValidation, "plan", "broll-csv", "reading header", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, services.Wrap(services.ErrValidation, "plan", "broll-csv",
				fmt.Sprintf("missing required column %q, got %v", required, header), nil)
		}
	}

	var requests []timeline.BrollRequest
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rowError(row, "malformed record", err)
		}
		request, err := parseRow(record, columns, row)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].Start < requests[j].Start
	})
	return requests, nil
}

func parseRow(record []string, columns map[string]int, row int) (timeline.BrollRequest, error) {
	var zero timeline.BrollRequest

	start, err := parseFloat(record, columns, "start_sec")
	if err != nil {
		return zero, rowError(row, "start_sec", err)
	}
	end, err := parseFloat(record, columns, "end_sec")
	if err != nil {
		return zero, rowError(row, "end_sec", err)
	}
	if end <= start {
		return zero, rowError(row, fmt.Sprintf("end_sec %.3f must be after start_sec %.3f", end, start), nil)
	}

	mode, err := timeline.ParseDisplayMode(field(record, columns, "type"))
	if err != nil {
		return zero, rowError(row, "type", err)
	}
	query := strings.TrimSpace(field(record, columns, "search_query"))
	if query == "" {
		return zero, rowError(row, "search_query is empty", nil)
	}

	fadeIn, err := parseOptionalFloat(record, columns, "fade_in")
	if err != nil {
		return zero, rowError(row, "fade_in", err)
	}
	fadeOut, err := parseOptionalFloat(record, columns, "fade_out")
	if err != nil {
		return zero, rowError(row, "fade_out", err)
	}
	if fadeIn < 0 || fadeOut < 0 {
		return zero, rowError(row, "fades must not be negative", nil)
	}

	return timeline.BrollRequest{
		Interval:    timeline.Interval{Start: start, End: end},
		Query:       query,
		DisplayMode: mode,
		FadeIn:      fadeIn,
		FadeOut:     fadeOut,
	}, nil
}

func field(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func parseFloat(record []string, columns map[string]int, name string) (float64, error) {
	raw := strings.TrimSpace(field(record, columns, name))
	if raw == "" {
		return 0, fmt.Errorf("%s is empty", name)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", name, raw)
	}
	return value, nil
}

func parseOptionalFloat(record []string, columns map[string]int, name string) (float64, error) {
	if _, ok := columns[name]; !ok {
		return defaultFadeSeconds, nil
	}
	raw := strings.TrimSpace(field(record, columns, name))
	if raw == "" {
		return defaultFadeSeconds, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", name, raw)
	}
	return value, nil
}

func rowError(row int, message string, err error) error {
	return services.Wrap(services.ErrValidation, "plan", "broll-csv",
		fmt.Sprintf("row %d: %s", row, message), err)
}
