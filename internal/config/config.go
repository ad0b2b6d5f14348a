package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 1e-13
	DefaultDuration  = 1e-9
	DefaultTolerance = 1e-6
	DefaultMinDt     = 1e-18
	DefaultMaxDt     = 1e-11
	DefaultAlpha     = 0.5
	DefaultGamma     = 2.210173e5
	DefaultMs        = 8.6e5
	DefaultC         = 1e11
	DefaultVolume    = 1e-27
)

// Environment variables read by the CLI.
const (
	EnvDebug = "MAGSIM_DEBUG"
	EnvData  = "MAGSIM_DATA"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Name        string           `yaml:"name"`
	Integrator  string           `yaml:"integrator"`
	Dt          float64          `yaml:"dt"`
	Duration    float64          `yaml:"duration"`
	Adaptive    bool             `yaml:"adaptive"`
	Tolerance   float64          `yaml:"tolerance"`
	MinDt       float64          `yaml:"min_dt"`
	MaxDt       float64          `yaml:"max_dt"`
	SaveEvery   int              `yaml:"save_every"`
	Renormalize bool             `yaml:"renormalize"`
	Seed        int64            `yaml:"seed"`
	Points      int              `yaml:"points"`
	Material    MaterialConfig   `yaml:"material"`
	Init        InitConfig       `yaml:"init"`
	Zeeman      ZeemanConfig     `yaml:"zeeman"`
	Anisotropy  AnisotropyConfig `yaml:"anisotropy"`
}

type MaterialConfig struct {
	Alpha      float64 `yaml:"alpha"`
	Gamma      float64 `yaml:"gamma"`
	Ms         float64 `yaml:"ms"`
	C          float64 `yaml:"c"`
	CellVolume float64 `yaml:"cell_volume"`
	Precession bool    `yaml:"precession"`
}

type InitConfig struct {
	M       [3]float64 `yaml:"m,flow"`
	Perturb float64    `yaml:"perturb"`
}

// ZeemanConfig describes H(t) = H + H1 sin(2π f t). A zero H1 gives a
// static field.
type ZeemanConfig struct {
	H         [3]float64 `yaml:"h,flow"`
	H1        [3]float64 `yaml:"h1,flow"`
	Frequency float64    `yaml:"frequency"`
	TOff      float64    `yaml:"t_off"`
	DtUpdate  float64    `yaml:"dt_update"`
}

// TimeDependent reports whether the applied field needs a TimeZeeman.
func (z ZeemanConfig) TimeDependent() bool {
	return z.H1 != [3]float64{} || z.TOff > 0 || z.DtUpdate > 0
}

type AnisotropyConfig struct {
	K1   float64    `yaml:"k1"`
	Axis [3]float64 `yaml:"axis,flow"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:       "macrospin",
		Integrator: "rk45",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Adaptive:   true,
		Tolerance:  DefaultTolerance,
		MinDt:      DefaultMinDt,
		MaxDt:      DefaultMaxDt,
		SaveEvery:  1,
		Points:     1,
		Material: MaterialConfig{
			Alpha:      DefaultAlpha,
			Gamma:      DefaultGamma,
			Ms:         DefaultMs,
			C:          DefaultC,
			CellVolume: DefaultVolume,
			Precession: true,
		},
		Init: InitConfig{
			M: [3]float64{1, 0, 0},
		},
		Zeeman: ZeemanConfig{
			H: [3]float64{0, 0, 1e5},
		},
		Anisotropy: AnisotropyConfig{
			Axis: [3]float64{0, 0, 1},
		},
	}
}

// Load reads a YAML file over DefaultConfig.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file over base. Keys absent from the file keep
// their value in base.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Dt <= 0 {
		errs = append(errs, fmt.Errorf("dt must be positive, got %g", c.Dt))
	}
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %g", c.Duration))
	}
	if c.Adaptive && c.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive for adaptive stepping, got %g", c.Tolerance))
	}
	if c.Points < 1 {
		errs = append(errs, fmt.Errorf("points must be at least 1, got %d", c.Points))
	}
	if c.Material.Alpha < 0 {
		errs = append(errs, fmt.Errorf("alpha must be non-negative, got %g", c.Material.Alpha))
	}
	if c.Material.Gamma <= 0 {
		errs = append(errs, fmt.Errorf("gamma must be positive, got %g", c.Material.Gamma))
	}
	if c.Material.Ms <= 0 {
		errs = append(errs, fmt.Errorf("ms must be positive, got %g", c.Material.Ms))
	}
	if c.Init.M == [3]float64{} {
		errs = append(errs, fmt.Errorf("initial magnetization must be non-zero"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// DebugEnabled reports whether MAGSIM_DEBUG is set to a true value.
func DebugEnabled() bool {
	v, err := strconv.ParseBool(os.Getenv(EnvDebug))
	return err == nil && v
}

// DataDir returns MAGSIM_DATA when set, fallback otherwise.
func DataDir(fallback string) string {
	if v := os.Getenv(EnvData); v != "" {
		return v
	}
	return fallback
}
