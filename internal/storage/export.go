package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/partsim/internal/metrics"
)

type ExportData struct {
	Run   RunMetadata     `json:"run"`
	Stats []metrics.Stats `json:"stats"`
}

// Export writes a stored run to w as "json" (metadata and stats) or "csv"
// (stats only).
func (s *Store) Export(w io.Writer, runID, format string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	stats, err := s.LoadStats(runID)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ExportData{Run: *meta, Stats: stats})
	case "csv":
		return gocsv.Marshal(stats, w)
	}
	return fmt.Errorf("unknown export format %q", format)
}
