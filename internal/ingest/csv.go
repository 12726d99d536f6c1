package ingest

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/bruadam/hvx-sub000/internal/timeseries"
)

// timeLayouts are tried in order for the timestamp column.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// LoadCSV reads a measurement table from a CSV file: first column
// timestamps, remaining columns numeric series named by the header row.
// Unparseable numeric cells become NaN (missing), and rows are sorted by
// time so the table satisfies the monotone-index invariant.
//
// This is deliberately plain glue. Column-mapping heuristics for messy
// exports belong to the surrounding application, not here.
func LoadCSV(path string) (*timeseries.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: need a header row and at least one data row", path)
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%s: need a timestamp column and at least one value column", path)
	}

	timestamps := make([]time.Time, 0, len(records)-1)
	values := make([][]float64, len(header)-1)
	for row, record := range records[1:] {
		ts, err := parseTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, row+2, err)
		}
		timestamps = append(timestamps, ts)
		for col := 1; col < len(header); col++ {
			v := math.NaN()
			if col < len(record) {
				if parsed, err := strconv.ParseFloat(record[col], 64); err == nil {
					v = parsed
				}
			}
			values[col-1] = append(values[col-1], v)
		}
	}

	table := timeseries.NewTable(timestamps)
	for i, name := range header[1:] {
		if err := table.AddColumn(name, values[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return table.SortByTime(), nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
