package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/neurosim/internal/dynamo"
	"github.com/san-kum/neurosim/internal/sensitivity"
)

// Store persists runs under a base directory, one subdirectory per run
// ID, with metadata.json plus the trajectory CSV or sensitivity report.
// The simulation core never touches it; only the CLI does.
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
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // "trajectory" or "sensitivity"
	Scenario   string    `json:"scenario"`
	Timestamp  time.Time `json:"timestamp"`
	Sex        int       `json:"sex"`
	APOE4      int       `json:"apoe4"`
	Xi         float64   `json:"xi"`
	AgeStart   float64   `json:"age_start"`
	AgeEnd     float64   `json:"age_end"`
	Samples    int       `json:"samples"`
	AbsTol     float64   `json:"atol"`
	RelTol     float64   `json:"rtol"`
	Integrator string    `json:"integrator"`
}

func (s *Store) writeMeta(runDir string, meta RunMetadata) error {
	f, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// SaveTrajectory writes one simulated trajectory and returns its run ID.
func (s *Store) SaveTrajectory(meta RunMetadata, tr *dynamo.Trajectory) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Scenario, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	meta.ID = runID
	meta.Kind = "trajectory"
	meta.Timestamp = time.Now()
	if err := s.writeMeta(runDir, meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := append([]string{"age_days"}, dynamo.VarNames[:]...)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for i, st := range tr.States {
		row := make([]string, 0, 1+len(st))
		row = append(row, strconv.FormatFloat(tr.Ages[i], 'g', -1, 64))
		for _, v := range st {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	return runID, nil
}

type reportFile struct {
	Biomarker int                 `json:"biomarker"`
	Baseline  float64             `json:"baseline"`
	Scores    []sensitivity.Score `json:"scores"`
	Failures  []reportFailure     `json:"failures,omitempty"`
}

type reportFailure struct {
	Parameter string `json:"parameter"`
	Direction string `json:"direction"`
	Error     string `json:"error"`
}

// SaveReport writes one sensitivity report and returns its run ID.
func (s *Store) SaveReport(meta RunMetadata, rep *sensitivity.Report) (string, error) {
	runID := fmt.Sprintf("%s_sens_%d", meta.Scenario, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	meta.ID = runID
	meta.Kind = "sensitivity"
	meta.Timestamp = time.Now()
	if err := s.writeMeta(runDir, meta); err != nil {
		return "", err
	}

	out := reportFile{Biomarker: rep.Biomarker, Baseline: rep.Baseline, Scores: rep.Scores}
	for _, fl := range rep.Failures {
		out.Failures = append(out.Failures, reportFailure{
			Parameter: fl.Parameter,
			Direction: fl.Direction,
			Error:     fl.Err.Error(),
		})
	}

	f, err := os.Create(filepath.Join(runDir, "report.json"))
	if err != nil {
		return "", err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns the metadata of every stored run.
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
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

// Load reads one run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrajectory reads back a stored trajectory CSV.
func (s *Store) LoadTrajectory(runID string) (*dynamo.Trajectory, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("run %s: empty trajectory", runID)
	}

	tr := &dynamo.Trajectory{}
	for _, rec := range records[1:] {
		age, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, err
		}
		st := make(dynamo.State, len(rec)-1)
		for i, cell := range rec[1:] {
			if st[i], err = strconv.ParseFloat(cell, 64); err != nil {
				return nil, err
			}
		}
		tr.Ages = append(tr.Ages, age)
		tr.States = append(tr.States, st)
	}
	return tr, nil
}
