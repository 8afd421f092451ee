// Package storage persists finished tuning runs as plain files: one directory
// per run holding metadata.json, bode.csv and step.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/leadlag/internal/compensator"
	"github.com/san-kum/leadlag/internal/objective"
	"github.com/san-kum/leadlag/internal/report"
	"github.com/san-kum/leadlag/internal/sim"
)

var (
	ErrNotFound  = errors.New("storage: run not found")
	ErrInvalidID = errors.New("storage: invalid run id")
)

const (
	metadataFile = "metadata.json"
	bodeFile     = "bode.csv"
	stepFile     = "step.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Dir() string { return s.baseDir }

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata is the summary of one run.
type RunMetadata struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	Numerator   []float64               `json:"numerator"`
	Denominator []float64               `json:"denominator"`
	Spec        objective.Spec          `json:"spec"`
	Compensator compensator.Compensator `json:"compensator"`
	Margins     report.Margins          `json:"margins"`
	StepInfo    report.StepInfo         `json:"stepInfo"`
	Meta        report.Meta             `json:"meta"`
}

// Run bundles what Save persists.
type Run struct {
	Name        string
	Numerator   []float64
	Denominator []float64
	Spec        objective.Spec
	Report      *report.Report
}

// Save writes a new run directory and returns its id.
func (s *Store) Save(run Run) (string, error) {
	if run.Report == nil {
		return "", fmt.Errorf("storage: nil report")
	}
	id := uuid.NewString()
	runDir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeRun(runDir, id, run); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return id, nil
}

func writeRun(runDir, id string, run Run) error {
	rep := run.Report
	meta := RunMetadata{
		ID:          id,
		Name:        run.Name,
		CreatedAt:   time.Now().UTC(),
		Numerator:   run.Numerator,
		Denominator: run.Denominator,
		Spec:        run.Spec,
		Compensator: rep.Compensator,
		Margins:     rep.Margins,
		StepInfo:    rep.StepInfo,
		Meta:        rep.Meta,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return err
	}

	bode := [][]report.Number{
		rep.Bode.Frequency,
		rep.Bode.Original.Magnitude,
		rep.Bode.Original.Phase,
		rep.Bode.Compensated.Magnitude,
		rep.Bode.Compensated.Phase,
	}
	header := []string{"frequency", "plant_mag_db", "plant_phase_deg", "comp_mag_db", "comp_phase_deg"}
	if err := writeCSV(filepath.Join(runDir, bodeFile), header, bode); err != nil {
		return err
	}

	step := [][]report.Number{rep.StepResponse.Time, rep.StepResponse.Amplitude}
	return writeCSV(filepath.Join(runDir, stepFile), []string{"time", "amplitude"}, step)
}

// List returns every readable run, newest first.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadStep reads back the closed-loop step response of a run.
func (s *Store) LoadStep(runID string) (sim.Response, error) {
	cols, err := s.readCSV(runID, stepFile, 2)
	if err != nil {
		return sim.Response{}, err
	}
	return sim.Response{Time: cols[0], Amplitude: cols[1]}, nil
}

// BodeTable is the stored frequency response of a run.
type BodeTable struct {
	Frequency      []float64
	PlantMagnitude []float64
	PlantPhase     []float64
	LoopMagnitude  []float64
	LoopPhase      []float64
}

func (s *Store) LoadBode(runID string) (BodeTable, error) {
	cols, err := s.readCSV(runID, bodeFile, 5)
	if err != nil {
		return BodeTable{}, err
	}
	return BodeTable{
		Frequency:      cols[0],
		PlantMagnitude: cols[1],
		PlantPhase:     cols[2],
		LoopMagnitude:  cols[3],
		LoopPhase:      cols[4],
	}, nil
}

// ExportData is the self-contained JSON form of a stored run.
type ExportData struct {
	RunMetadata
	Bode struct {
		Frequency   []report.Number `json:"frequency"`
		Original    report.Series   `json:"original"`
		Compensated report.Series   `json:"compensated"`
	} `json:"bode"`
	StepResponse report.Step `json:"stepResponse"`
}

// ExportJSON writes the run with its series as indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	bode, err := s.LoadBode(runID)
	if err != nil {
		return err
	}
	step, err := s.LoadStep(runID)
	if err != nil {
		return err
	}

	data := ExportData{RunMetadata: *meta}
	data.Bode.Frequency = report.Numbers(bode.Frequency)
	data.Bode.Original = report.Series{Magnitude: report.Numbers(bode.PlantMagnitude), Phase: report.Numbers(bode.PlantPhase)}
	data.Bode.Compensated = report.Series{Magnitude: report.Numbers(bode.LoopMagnitude), Phase: report.Numbers(bode.LoopPhase)}
	data.StepResponse = report.Step{Time: report.Numbers(step.Time), Amplitude: report.Numbers(step.Amplitude)}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (s *Store) runDir(runID string) (string, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, runID)
	}
	return filepath.Join(s.baseDir, runID), nil
}

func (s *Store) readCSV(runID, name string, width int) ([][]float64, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = width
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}

	cols := make([][]float64, width)
	if len(records) < 2 {
		return cols, nil
	}
	for j := range cols {
		cols[j] = make([]float64, 0, len(records)-1)
	}
	for _, record := range records[1:] {
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: read %s: %w", name, err)
			}
			cols[j] = append(cols[j], v)
		}
	}
	return cols, nil
}

func writeJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeCSV writes equal-length columns. Non-finite values use strconv's
// NaN/+Inf/-Inf spellings, which ParseFloat reads back.
func writeCSV(path string, header []string, cols [][]report.Number) (err error) {
	n := 0
	for j, col := range cols {
		if j == 0 {
			n = len(col)
		} else if len(col) != n {
			return fmt.Errorf("storage: %s: column %q has %d rows, want %d", filepath.Base(path), header[j], len(col), n)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for i := 0; i < n; i++ {
		for j, col := range cols {
			row[j] = strconv.FormatFloat(col[i].Float(), 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
