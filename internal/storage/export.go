package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/magsim/internal/dynamo"
)

type ExportData struct {
	Name          string             `json:"name"`
	Integrator    string             `json:"integrator"`
	Dt            float64            `json:"dt"`
	Duration      float64            `json:"duration"`
	Points        int                `json:"points"`
	Steps         int                `json:"steps"`
	StepsRejected int                `json:"steps_rejected"`
	Times         []float64          `json:"times"`
	States        []dynamo.State     `json:"states"`
	Metrics       map[string]float64 `json:"metrics"`
}

func NewExportData(info RunInfo, result *dynamo.Result) ExportData {
	return ExportData{
		Name:          info.Name,
		Integrator:    info.Integrator,
		Dt:            info.Dt,
		Duration:      info.Duration,
		Points:        info.Points,
		Steps:         result.StepsTaken,
		StepsRejected: result.StepsRejected,
		Times:         result.Times,
		States:        result.States,
		Metrics:       result.Metrics,
	}
}

// ExportJSON writes a stored run to w as a single JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return err
	}

	info := RunInfo{
		Name:       meta.Name,
		Integrator: meta.Integrator,
		Dt:         meta.Dt,
		Duration:   meta.Duration,
		Points:     meta.Points,
	}
	result := &dynamo.Result{
		States:        states,
		Times:         times,
		Metrics:       meta.Metrics,
		StepsTaken:    meta.StepsTaken,
		StepsRejected: meta.StepsRejected,
	}
	return EncodeJSON(w, NewExportData(info, result))
}

// ExportJSONFile writes a result straight to path without storing it.
func ExportJSONFile(path string, info RunInfo, result *dynamo.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeJSON(f, NewExportData(info, result))
}

func EncodeJSON(w io.Writer, data ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
