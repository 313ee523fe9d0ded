package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	RunMetadata
	Columns []string    `json:"columns"`
	Times   []float64   `json:"times"`
	Rows    [][]float64 `json:"rows"`
}

// ExportJSON writes a run's metadata and trace as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	trace, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{
		RunMetadata: *meta,
		Columns:     trace.Columns,
		Times:       trace.Times,
		Rows:        trace.Rows,
	})
}
