package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/trajopt/internal/ocp"
	"github.com/san-kum/trajopt/internal/transcription"
)

func sampleRun() *Run {
	return &Run{
		Meta: RunMetadata{
			Problem:    "slider",
			Backend:    "sqp",
			MeshPoints: 3,
			StateDim:   1,
			ControlDim: 1,
			Status:     "solved",
			Objective:  1,
			Metrics:    map[string]float64{"max_defect": 1e-9},
		},
		Trajectory: &transcription.Trajectory{
			Times:    []float64{0, 0.5, 1},
			States:   []ocp.State{{0}, {0.5}, {1}},
			Controls: []ocp.Control{{0}, {1}, {1.0 / 3}},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	id, err := s.Save(sampleRun())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	meta, err := s.Load(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.ID != id || meta.Problem != "slider" || meta.Metrics["max_defect"] != 1e-9 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}

	tr, err := s.LoadTrajectory(id)
	if err != nil {
		t.Fatalf("load trajectory: %v", err)
	}
	if tr.Len() != 3 {
		t.Fatalf("expected 3 points, got %d", tr.Len())
	}
	if tr.States[1][0] != 0.5 || tr.Controls[2][0] != 1.0/3 {
		t.Errorf("values not preserved: %v %v", tr.States, tr.Controls)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := New(t.TempDir())
	first, _ := s.Save(sampleRun())
	second, _ := s.Save(sampleRun())
	if err := os.MkdirAll(filepath.Join(s.baseDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("expected %s then %s, got %s then %s", second, first, runs[0].ID, runs[1].ID)
	}
}

func TestListMissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "absent")).List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v %v", runs, err)
	}
}

func TestSaveRejectsDimensionMismatch(t *testing.T) {
	run := sampleRun()
	run.Meta.StateDim = 2
	if _, err := New(t.TempDir()).Save(run); !errors.Is(err, ocp.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestLoadTrajectoryMalformed(t *testing.T) {
	s := New(t.TempDir())
	id, _ := s.Save(sampleRun())
	path := filepath.Join(s.baseDir, id, trajectoryFile)
	if err := os.WriteFile(path, []byte("time,x\n0,1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadTrajectory(id); !errors.Is(err, ErrMalformedTrajectory) {
		t.Errorf("expected ErrMalformedTrajectory, got %v", err)
	}
}
