// Package storage keeps recorded session traces on disk, one directory per
// run holding metadata.json and frames.csv.
package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
)

var ErrDigestMismatch = errors.New("storage: frames digest mismatch")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunStats struct {
	Passes        uint64  `json:"passes"`
	Steps         uint64  `json:"steps"`
	StepErrors    uint64  `json:"step_errors"`
	SimulatedTime float64 `json:"simulated_time"`
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scene     string             `json:"scene"`
	Timestamp time.Time          `json:"timestamp"`
	FixedStep float64            `json:"fixed_step"`
	TimeScale float64            `json:"time_scale"`
	Duration  float64            `json:"duration"`
	FPS       int                `json:"fps"`
	Frames    int                `json:"frames"`
	Digest    string             `json:"digest"`
	Metrics   map[string]float64 `json:"metrics"`
	Stats     RunStats           `json:"stats"`
}

// Trace is a table of sampled values, one row per rendered frame. Columns
// name the values in each row; the time column is implicit.
type Trace struct {
	Columns []string
	Times   []float64
	Rows    [][]float64
}

// Append adds one row. The row must match Columns.
func (t *Trace) Append(at float64, row []float64) {
	t.Times = append(t.Times, at)
	t.Rows = append(t.Rows, row)
}

func (t *Trace) Len() int { return len(t.Times) }

// Column returns the values of the named column, or nil if unknown.
func (t *Trace) Column(name string) []float64 {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out
}

// Save writes a new run and returns its ID. ID, Timestamp, Frames and
// Digest are filled in from the trace.
func (s *Store) Save(meta RunMetadata, trace *Trace) (string, error) {
	if trace == nil {
		trace = &Trace{}
	}
	var buf bytes.Buffer
	if err := writeCSV(&buf, trace); err != nil {
		return "", fmt.Errorf("storage: encode frames: %w", err)
	}

	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Scene, now.UnixNano())
	meta.Timestamp = now
	meta.Frames = trace.Len()
	meta.Digest = digest(buf.Bytes())

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), data, 0644); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, framesFile), buf.Bytes(), 0644); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeCSV(buf *bytes.Buffer, trace *Trace) error {
	w := csv.NewWriter(buf)
	header := append([]string{"time"}, trace.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, t := range trace.Times {
		row := make([]string, 0, len(trace.Columns)+1)
		row = append(row, strconv.FormatFloat(t, 'f', 6, 64))
		for _, val := range trace.Rows[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func digest(b []byte) string {
	return strconv.FormatUint(xxh3.Hash(b), 16)
}

// List returns all readable runs, oldest first.
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

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadFrames reads a run's trace and checks it against the recorded digest.
func (s *Store) LoadFrames(runID string) (*Trace, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}
	if meta.Digest != "" && digest(data) != meta.Digest {
		return nil, fmt.Errorf("%w: run %s", ErrDigestMismatch, runID)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	trace := &Trace{}
	if len(records) == 0 {
		return trace, nil
	}
	trace.Columns = records[0][1:]

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: run %s line %d: %w", runID, i+1, err)
		}
		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: run %s line %d: %w", runID, i+1, err)
			}
			row = append(row, val)
		}
		trace.Append(t, row)
	}
	return trace, nil
}
