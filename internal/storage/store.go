package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/partsim/internal/metrics"
)

const (
	metadataFile = "metadata.json"
	statsFile    = "stats.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scene       string             `json:"scene"`
	Preset      string             `json:"preset,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Steps       int                `json:"steps"`
	Backend     string             `json:"backend"`
	Particles   int                `json:"particles"`
	Links       int                `json:"links"`
	BrokenLinks int                `json:"broken_links"`
	Metrics     map[string]float64 `json:"metrics"`
	TimingsMS   map[string]float64 `json:"timings_ms,omitempty"`
}

// Save writes a run directory holding meta and the sampled stats and
// returns the run id it was stored under.
func (s *Store) Save(meta RunMetadata, stats []metrics.Stats) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runID, runDir, err := s.createRunDir(meta.Scene, meta.Timestamp)
	if err != nil {
		return "", err
	}
	meta.ID = runID

	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	w, err := NewStatsWriter(filepath.Join(runDir, statsFile))
	if err != nil {
		return "", err
	}
	for _, row := range stats {
		if err := w.Write(row); err != nil {
			w.Close()
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	return runID, nil
}

func (s *Store) createRunDir(scene string, ts time.Time) (string, string, error) {
	if err := s.Init(); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d", scene, ts.Unix())
	for i := 0; ; i++ {
		runID := base
		if i > 0 {
			runID = fmt.Sprintf("%s_%d", base, i)
		}
		runDir := s.Dir(runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
	}
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// List returns every stored run, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadStats(runID string) ([]metrics.Stats, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, statsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stats := make([]metrics.Stats, 0)
	if err := gocsv.UnmarshalFile(f, &stats); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []metrics.Stats{}, nil
		}
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return stats, nil
}
