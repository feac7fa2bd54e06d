// Package storage keeps solved runs on disk, one directory per run with
// metadata.json and trajectory.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/trajopt/internal/ocp"
	"github.com/san-kum/trajopt/internal/transcription"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

var ErrMalformedTrajectory = errors.New("storage: malformed trajectory file")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Problem    string             `json:"problem"`
	Params     map[string]float64 `json:"params,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Backend    string             `json:"backend"`
	Quadrature string             `json:"quadrature"`
	MeshPoints int                `json:"mesh_points"`
	StateDim   int                `json:"state_dim"`
	ControlDim int                `json:"control_dim"`
	Status     string             `json:"status"`
	Objective  float64            `json:"objective"`
	Iterations int                `json:"iterations"`
	Elapsed    time.Duration      `json:"elapsed_ns"`
	Message    string             `json:"message,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// Run is one solve to be stored.
type Run struct {
	Meta       RunMetadata
	Trajectory *transcription.Trajectory
}

// Save writes run under a new ID and returns it. Meta.ID and Timestamp
// are filled in.
func (s *Store) Save(run *Run) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", run.Meta.Problem, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := run.Meta
	meta.ID = runID
	meta.Timestamp = now
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if run.Trajectory != nil {
		if err := writeTrajectory(filepath.Join(runDir, trajectoryFile), run.Trajectory, meta.StateDim, meta.ControlDim); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func header(ns, nc int) []string {
	h := []string{"time"}
	for i := 0; i < ns; i++ {
		h = append(h, fmt.Sprintf("state%d", i))
	}
	for i := 0; i < nc; i++ {
		h = append(h, fmt.Sprintf("control%d", i))
	}
	return h
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeTrajectory(path string, tr *transcription.Trajectory, ns, nc int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header(ns, nc)); err != nil {
		return err
	}
	for i := 0; i < tr.Len(); i++ {
		if len(tr.States[i]) != ns || len(tr.Controls[i]) != nc {
			return fmt.Errorf("%w: mesh point %d", ocp.ErrDimensionMismatch, i)
		}
		row := make([]string, 0, 1+ns+nc)
		row = append(row, format(tr.Times[i]))
		for _, v := range tr.States[i] {
			row = append(row, format(v))
		}
		for _, v := range tr.Controls[i] {
			row = append(row, format(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns stored runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
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
	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return b.Timestamp.Compare(a.Timestamp)
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

func (s *Store) LoadTrajectory(runID string) (*transcription.Trajectory, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTrajectory, err)
	}
	ns, nc := meta.StateDim, meta.ControlDim
	if len(records) == 0 || !slices.Equal(records[0], header(ns, nc)) {
		return nil, fmt.Errorf("%w: unexpected header", ErrMalformedTrajectory)
	}

	tr := &transcription.Trajectory{}
	for i, record := range records[1:] {
		values := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedTrajectory, i+1, err)
			}
			values[j] = v
		}
		tr.Times = append(tr.Times, values[0])
		tr.States = append(tr.States, ocp.State(values[1:1+ns]))
		tr.Controls = append(tr.Controls, ocp.Control(values[1+ns:]))
	}
	return tr, nil
}
