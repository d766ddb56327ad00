package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/pdthreshold/internal/domain"
)

// DefaultChartPath is where the prior/posterior chart lands unless overridden.
const DefaultChartPath = "app/static/images/projects/risk/portfolio_cecl_pd_thresholds_prior_posterior.png"

// Report formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the full configuration surface of a threshold run
type Config struct {
	Sample     SampleConfig  `yaml:"sample"`
	Thresholds domain.Levels `yaml:"thresholds"`
	Update     UpdateConfig  `yaml:"update"`
	Chart      ChartConfig   `yaml:"chart"`
	Report     ReportConfig  `yaml:"report"`
	Metrics    MetricsConfig `yaml:"metrics"`
}

// SampleConfig controls the synthetic PD sample
type SampleConfig struct {
	Size  int     `yaml:"size"`  // N loans
	Seed  uint64  `yaml:"seed"`  // generator seed
	Alpha float64 `yaml:"alpha"` // generating Beta alpha
	Beta  float64 `yaml:"beta"`  // generating Beta beta
}

// UpdateConfig controls the conjugate update
type UpdateConfig struct {
	// ObservedDefaults replaces the expected count N*mean when set.
	ObservedDefaults *int `yaml:"observed_defaults,omitempty"`
}

// ChartConfig controls the rendered PNG
type ChartConfig struct {
	Path     string  `yaml:"path"`
	XMax     float64 `yaml:"x_max"`     // upper bound of the PD axis
	Points   int     `yaml:"points"`    // density evaluation grid size
	WidthIn  float64 `yaml:"width_in"`  // inches
	HeightIn float64 `yaml:"height_in"` // inches
	DPI      int     `yaml:"dpi"`
	Disabled bool    `yaml:"disabled"`
}

// ReportConfig controls the console summary
type ReportConfig struct {
	Format string `yaml:"format"` // text | json
}

// MetricsConfig controls the prometheus textfile export
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // empty disables export
}

// DefaultConfig returns the reference CECL demo settings
func DefaultConfig() *Config {
	return &Config{
		Sample: SampleConfig{
			Size:  6000,
			Seed:  321,
			Alpha: 1.25,
			Beta:  120.0,
		},
		Thresholds: domain.Levels{Low: 0.01, High: 0.99},
		Chart: ChartConfig{
			Path:     DefaultChartPath,
			XMax:     0.04,
			Points:   3000,
			WidthIn:  11,
			HeightIn: 6,
			DPI:      200,
		},
		Report: ReportConfig{Format: FormatText},
	}
}

// LoadConfig reads YAML from configPath over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return config, nil
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	if err := c.Sample.Validate(); err != nil {
		return fmt.Errorf("sample: %w", err)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if d := c.Update.ObservedDefaults; d != nil && (*d < 0 || *d > c.Sample.Size) {
		return fmt.Errorf("update: observed_defaults must be within [0, %d], got %d", c.Sample.Size, *d)
	}
	if err := c.Chart.Validate(); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	switch c.Report.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("report: format must be %q or %q, got %q", FormatText, FormatJSON, c.Report.Format)
	}
	return nil
}

// Validate ensures sample configuration is valid
func (s *SampleConfig) Validate() error {
	if s.Size <= 0 {
		return fmt.Errorf("size must be positive, got %d", s.Size)
	}
	if !(s.Alpha > 0) || !(s.Beta > 0) {
		return fmt.Errorf("alpha and beta must be positive, got %g, %g", s.Alpha, s.Beta)
	}
	return nil
}

// Validate ensures chart configuration is valid; a disabled chart is not checked
func (c *ChartConfig) Validate() error {
	if c.Disabled {
		return nil
	}
	if c.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if !(c.XMax > 0) || c.XMax > 1 {
		return fmt.Errorf("x_max must be in (0, 1], got %g", c.XMax)
	}
	if c.Points < 2 {
		return fmt.Errorf("points must be at least 2, got %d", c.Points)
	}
	if !(c.WidthIn > 0) || !(c.HeightIn > 0) {
		return fmt.Errorf("width_in and height_in must be positive, got %g x %g", c.WidthIn, c.HeightIn)
	}
	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be positive, got %d", c.DPI)
	}
	return nil
}
