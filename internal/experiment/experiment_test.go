package experiment

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/field"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	if diff := cmp.Diff([]string{"euler", "rk4", "rk45"}, reg.ListIntegrators()); diff != "" {
		t.Errorf("integrators mismatch (-want +got):\n%s", diff)
	}
	if _, err := reg.GetIntegrator("verlet"); err == nil {
		t.Error("expected error for unknown integrator")
	}
	if _, err := reg.GetMetric("nope", nil); err == nil {
		t.Error("expected error for unknown metric")
	}

	eq, err := NewEquation(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0)
	for _, m := range reg.DefaultMetrics(eq) {
		got = append(got, m.Name())
	}
	want := []string{"norm_drift", "mx", "my", "mz", "energy_drift", "max_dmdt"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("default metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestNewField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   []string
	}{
		{"static", func(c *config.Config) {}, []string{"Zeeman"}},
		{"switch off", func(c *config.Config) { c.Zeeman.TOff = 1e-10 }, []string{"TimeZeeman"}},
		{"discrete", func(c *config.Config) { c.Zeeman.DtUpdate = 1e-11 }, []string{"TimeZeeman"}},
		{"anisotropy", func(c *config.Config) { c.Anisotropy.K1 = 1e4 }, []string{"Anisotropy", "Zeeman"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			ef, err := NewField(cfg)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, ef.Names()); diff != "" {
				t.Errorf("interactions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewField_DiscreteNeedsUpdateOrOff(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Zeeman.TOff = 1e-10
	cfg.Zeeman.DtUpdate = 1e-11
	ef, err := NewField(cfg)
	if err != nil {
		t.Fatal(err)
	}
	i, _ := ef.Get("TimeZeeman")
	if tz := i.(*field.TimeZeeman); tz.DtUpdate != 1e-11 || tz.TOff != 1e-10 {
		t.Errorf("unexpected TimeZeeman %+v", tz)
	}
}

func TestNewEquation_Params(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Material.Alpha = 0.02
	cfg.Material.Precession = false

	eq, err := NewEquation(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if eq.Alpha != 0.02 || eq.Precession {
		t.Errorf("material not applied: alpha=%v precession=%v", eq.Alpha, eq.Precession)
	}
	if eq.StateDim() != 3 {
		t.Errorf("StateDim = %d, want 3", eq.StateDim())
	}
}

func TestInitialState(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Points = 16
	cfg.Init.Perturb = 0.2

	a := InitialState(cfg, 7)
	b := InitialState(cfg, 7)
	c := InitialState(cfg, 8)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed gave different states:\n%s", diff)
	}
	if cmp.Equal(a, c) {
		t.Error("different seeds gave identical states")
	}
	if len(a) != 48 {
		t.Errorf("len = %d, want 48", len(a))
	}
}

func TestBuild_Invalid(t *testing.T) {
	reg := NewRegistry()

	cfg := config.DefaultConfig()
	cfg.Dt = 0
	if _, err := Build(cfg, reg); err == nil {
		t.Error("expected validation error")
	}

	cfg = config.DefaultConfig()
	cfg.Integrator = "leapfrog"
	if _, err := Build(cfg, reg); err == nil || !strings.Contains(err.Error(), "leapfrog") {
		t.Errorf("expected unknown integrator error, got %v", err)
	}
}

func TestRun_Relax(t *testing.T) {
	cfg := config.GetPreset("macrospin", "relax")
	cfg.Duration = 1e-9

	exp, err := Build(cfg, NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if mz := result.Metrics["mz"]; mz < 0.99 {
		t.Errorf("mz = %f, expected relaxation along the field", mz)
	}
	if drift := result.Metrics["norm_drift"]; drift > 1e-3 {
		t.Errorf("norm drift %e", drift)
	}
	if result.Times[len(result.Times)-1] != cfg.Duration {
		t.Errorf("final time %g, want %g", result.Times[len(result.Times)-1], cfg.Duration)
	}
}

func TestRun_Precession(t *testing.T) {
	cfg := config.GetPreset("macrospin", "precession")
	cfg.Duration = 1e-10

	exp, err := Build(cfg, NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 1000 {
		t.Errorf("steps = %d, want 1000", result.StepsTaken)
	}
	if drift := result.Metrics["norm_drift"]; drift > 1e-4 {
		t.Errorf("norm drift %e", drift)
	}
	// damping pulls m towards +z
	if mz0 := result.States[0][2]; result.Metrics["mz"] <= mz0 {
		t.Errorf("mz fell from %f to %f", mz0, result.Metrics["mz"])
	}
}

func TestRunEnsemble(t *testing.T) {
	cfg := config.GetPreset("macrospin", "relax")
	cfg.Duration = 1e-10
	cfg.Init.Perturb = 0.3

	results, err := RunEnsemble(context.Background(), cfg, NewRegistry(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if cmp.Equal(results[0].States[0], results[1].States[0]) {
		t.Error("ensemble members share an initial state")
	}
}

func TestRunInfo(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Zeeman.H = [3]float64{0, 0, 8e4}
	cfg.Material.Alpha = 0.02

	info := RunInfo(cfg)
	if info.Name != cfg.Name || info.Integrator != cfg.Integrator || info.Points != cfg.Points {
		t.Errorf("run header mismatch: %+v", info)
	}
	if info.Alpha != 0.02 || info.Gamma != cfg.Material.Gamma || info.Field != cfg.Zeeman.H {
		t.Errorf("material mismatch: %+v", info)
	}
}
