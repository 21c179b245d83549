package storage

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/partsim/internal/metrics"
)

// StatsWriter streams Stats rows to a CSV file, writing the header with the
// first row.
type StatsWriter struct {
	f             *os.File
	headerWritten bool
}

func NewStatsWriter(path string) (*StatsWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &StatsWriter{f: f}, nil
}

func (w *StatsWriter) Write(row metrics.Stats) error {
	records := []metrics.Stats{row}
	if !w.headerWritten {
		if err := gocsv.Marshal(records, w.f); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, w.f); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

func (w *StatsWriter) Close() error {
	return w.f.Close()
}
