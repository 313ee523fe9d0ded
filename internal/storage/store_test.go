package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func sampleTrace() *Trace {
	tr := &Trace{Columns: []string{"ball_y", "kinetic_energy"}}
	tr.Append(0, []float64{5, 0})
	tr.Append(0.5, []float64{3.77, 12.03})
	tr.Append(1, []float64{0.5, 0.25})
	return tr
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{
		Scene:     "drop",
		FixedStep: 1.0 / 60,
		TimeScale: 1,
		Duration:  1,
		FPS:       2,
		Metrics:   map[string]float64{"max_height": 5},
		Stats:     RunStats{Steps: 60},
	}, sampleTrace())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Scene != "drop" {
		t.Errorf("expected scene 'drop', got '%s'", meta.Scene)
	}
	if meta.Frames != 3 {
		t.Errorf("expected 3 frames, got %d", meta.Frames)
	}
	if meta.Digest == "" {
		t.Error("expected a digest")
	}
	if meta.Metrics["max_height"] != 5 {
		t.Errorf("expected max height 5, got %f", meta.Metrics["max_height"])
	}
	if meta.Stats.Steps != 60 {
		t.Errorf("expected 60 steps, got %d", meta.Stats.Steps)
	}

	trace, err := st.LoadFrames(runID)
	if err != nil {
		t.Fatalf("load frames failed: %v", err)
	}
	if trace.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", trace.Len())
	}
	if got := trace.Column("ball_y"); len(got) != 3 || got[1] != 3.77 {
		t.Errorf("unexpected ball_y column %v", got)
	}
	if trace.Column("missing") != nil {
		t.Error("expected nil for unknown column")
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	first, _ := st.Save(RunMetadata{Scene: "drop"}, sampleTrace())
	second, _ := st.Save(RunMetadata{Scene: "stack"}, nil)

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != first || runs[1].ID != second {
		t.Errorf("expected runs oldest first, got %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nope"))
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v, %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(RunMetadata{Scene: "drop"}, sampleTrace())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "frames.csv")); os.IsNotExist(err) {
		t.Error("frames.csv not created")
	}
}

func TestLoadFramesDetectsTampering(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(RunMetadata{Scene: "drop"}, sampleTrace())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	path := filepath.Join(tmpDir, runID, "frames.csv")
	data, _ := os.ReadFile(path)
	data = bytes.Replace(data, []byte("3.770000"), []byte("9.990000"), 1)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := st.LoadFrames(runID); !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("expected ErrDigestMismatch, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{Scene: "drop", FPS: 2}, sampleTrace())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var out ExportData
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != runID || out.FPS != 2 {
		t.Errorf("unexpected metadata %+v", out.RunMetadata)
	}
	if len(out.Rows) != 3 || len(out.Columns) != 2 {
		t.Errorf("expected 3 rows of 2 columns, got %d rows, %v", len(out.Rows), out.Columns)
	}
}
