package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/san-kum/magsim/internal/dynamo"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo describes how a run was produced.
type RunInfo struct {
	Name       string
	Integrator string
	Dt         float64
	Duration   float64
	Seed       int64
	Points     int
	Adaptive   bool
	Alpha      float64
	Gamma      float64
	Field      [3]float64
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Timestamp     time.Time          `json:"timestamp"`
	Seed          int64              `json:"seed"`
	Dt            float64            `json:"dt"`
	Duration      float64            `json:"duration"`
	Integrator    string             `json:"integrator"`
	Adaptive      bool               `json:"adaptive"`
	Points        int                `json:"points"`
	Alpha         float64            `json:"alpha"`
	Gamma         float64            `json:"gamma"`
	Field         [3]float64         `json:"field"`
	StepsTaken    int                `json:"steps_taken"`
	StepsRejected int                `json:"steps_rejected"`
	EnergyChange  float64            `json:"energy_change"`
	Metrics       map[string]float64 `json:"metrics"`
}

// Save writes a new run directory. On failure the directory is removed
// so a partial run never shows up in List.
func (s *Store) Save(info RunInfo, result *dynamo.Result) (string, error) {
	now := time.Now()
	if err := s.Init(); err != nil {
		return "", err
	}

	runID := fmt.Sprintf("%s_%d", sanitize(info.Name), now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	for i := 1; ; i++ {
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", err
		}
		runID = fmt.Sprintf("%s_%d-%d", sanitize(info.Name), now.UnixNano(), i)
		runDir = filepath.Join(s.baseDir, runID)
	}

	meta := RunMetadata{
		ID:            runID,
		Name:          info.Name,
		Timestamp:     now,
		Seed:          info.Seed,
		Dt:            info.Dt,
		Duration:      info.Duration,
		Integrator:    info.Integrator,
		Adaptive:      info.Adaptive,
		Points:        info.Points,
		Alpha:         info.Alpha,
		Gamma:         info.Gamma,
		Field:         info.Field,
		StepsTaken:    result.StepsTaken,
		StepsRejected: result.StepsRejected,
		EnergyChange:  result.EnergyChange,
		Metrics:       result.Metrics,
	}

	if err := writeRun(runDir, meta, result); err != nil {
		if rmErr := os.RemoveAll(runDir); rmErr != nil {
			slog.Warn("removing partial run", "dir", runDir, "err", rmErr)
		}
		return "", err
	}

	slog.Debug("run saved", "id", runID, "states", len(result.States))
	return runID, nil
}

func writeRun(runDir string, meta RunMetadata, result *dynamo.Result) error {
	f, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return err
	}
	if err := WriteStates(f, result); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, "metadata.json"), meta)
}

// WriteStates writes result as CSV with columns time, mx0.., my0.., mz0...
func WriteStates(out io.Writer, result *dynamo.Result) error {
	if len(result.Times) != len(result.States) {
		return fmt.Errorf("storage: %d times for %d states", len(result.Times), len(result.States))
	}
	w := csv.NewWriter(out)

	if len(result.States) == 0 {
		w.Flush()
		return w.Error()
	}

	if err := w.Write(Header(dynamo.Points(result.States[0]))); err != nil {
		return err
	}

	row := make([]string, 0, len(result.States[0])+1)
	for i := range result.States {
		row = append(row[:0], strconv.FormatFloat(result.Times[i], 'g', -1, 64))
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// Header returns the CSV column names for a field over n points.
func Header(n int) []string {
	header := make([]string, 0, 3*n+1)
	header = append(header, "time")
	for _, c := range []string{"mx", "my", "mz"} {
		for i := 0; i < n; i++ {
			header = append(header, fmt.Sprintf("%s%d", c, i))
		}
	}
	return header
}

// List returns the metadata of every stored run, oldest first.
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
			slog.Debug("skipping run directory", "dir", entry.Name(), "err", err)
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int { return a.Timestamp.Compare(b.Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata for %s: %w", runID, err)
	}

	return &meta, nil
}

// LoadStates reads back the states and times written by Save.
func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return []dynamo.State{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([]dynamo.State, 0, len(records)-1)

	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		state := make(dynamo.State, len(record)-1)
		for j, field := range record[1:] {
			if state[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
		}
		times = append(times, t)
		states = append(states, state)
	}

	return states, times, nil
}

func sanitize(name string) string {
	if name == "" {
		return "run"
	}
	out := []rune(name)
	for i, r := range out {
		if r == '/' || r == '\\' || r == ' ' {
			out[i] = '-'
		}
	}
	return string(out)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
