package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/banshee-data/dbscan-sweep/internal/cluster"
	"github.com/banshee-data/dbscan-sweep/internal/fsutil"
	"github.com/banshee-data/dbscan-sweep/internal/sweep"
)

// DefaultConfigPath is the path to the canonical sweep defaults file.
const DefaultConfigPath = "config/sweep.defaults.json"

// Defaults used by the Get* accessors when a field is omitted. The default
// grid runs minPts 2, 4, 6 against eps 1 through 4.
const (
	DefaultEpsilons   = "1,2,3,4"
	DefaultMinPoints  = "2,4,6"
	DefaultMetric     = cluster.MetricEuclidean
	DefaultIndex      = string(cluster.IndexAuto)
	DefaultReportPath = "output.txt"
)

// maxFileSize caps the config file size.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// ValueList is a parameter list written either as a JSON array of numbers
// or as a string holding a comma-separated list or a "min:max:step" range.
type ValueList string

// UnmarshalJSON accepts [1, 2.5] as well as "1,2.5" and "1:4:1".
func (v *ValueList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var nums []json.Number
		if err := json.Unmarshal(data, &nums); err != nil {
			return fmt.Errorf("value list must hold numbers: %w", err)
		}
		parts := make([]string, len(nums))
		for i, n := range nums {
			parts[i] = n.String()
		}
		*v = ValueList(strings.Join(parts, ","))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("value list must be an array or a string: %w", err)
	}
	*v = ValueList(s)
	return nil
}

// SweepConfig is the JSON sweep configuration. Every field is optional;
// omitted fields fall back to the defaults returned by the Get* methods, and
// command-line flags override both.
type SweepConfig struct {
	// Parameter grid
	Epsilons  *ValueList `json:"epsilons,omitempty"`
	MinPoints *ValueList `json:"min_points,omitempty"`

	// Engine
	Metric        *string `json:"metric,omitempty"` // euclidean, manhattan or chebyshev
	Index         *string `json:"index,omitempty"`  // auto, matrix or grid
	Workers       *int    `json:"workers,omitempty"`
	MatrixWorkers *int    `json:"matrix_workers,omitempty"`
	FailFast      *bool   `json:"fail_fast,omitempty"`

	// Outputs; empty paths disable the optional ones
	ReportPath   *string `json:"report_path,omitempty"`
	SummaryPath  *string `json:"summary_path,omitempty"`
	DatabasePath *string `json:"database_path,omitempty"`
	ChartDir     *string `json:"chart_dir,omitempty"`
}

// EmptySweepConfig returns a SweepConfig with all fields set to nil.
func EmptySweepConfig() *SweepConfig {
	return &SweepConfig{}
}

// LoadSweepConfig loads a SweepConfig from a JSON file on disk.
func LoadSweepConfig(path string) (*SweepConfig, error) {
	return LoadSweepConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadSweepConfigFS loads a SweepConfig from fsys. The file must have a .json
// extension and be at most 1MB. Unknown fields are rejected so that typos do
// not silently fall back to defaults.
func LoadSweepConfigFS(fsys fsutil.FileSystem, path string) (*SweepConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySweepConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical sweep defaults from
// DefaultConfigPath, searching the current directory and its parents up to
// the repository root. Panics if the file cannot be loaded, intended for test
// setup.
func MustLoadDefaultConfig() *SweepConfig {
	fsys := fsutil.OSFileSystem{}
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // one level down
		"../../" + DefaultConfigPath,    // from cmd/sweep or internal/config
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if !fsys.Exists(path) {
			continue
		}
		cfg, err := LoadSweepConfigFS(fsys, path)
		if err != nil {
			panic(fmt.Sprintf("invalid %s: %v", path, err))
		}
		return cfg
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that every set field is usable.
func (c *SweepConfig) Validate() error {
	eps, err := c.epsilons()
	if err != nil {
		return fmt.Errorf("invalid epsilons: %w", err)
	}
	minPts, err := c.minPoints()
	if err != nil {
		return fmt.Errorf("invalid min_points: %w", err)
	}
	if _, err := sweep.Grid(eps, minPts); err != nil {
		return err
	}

	if _, err := cluster.MetricByName(c.GetMetric()); err != nil {
		return err
	}
	if _, err := cluster.ParseIndexKind(c.GetIndex()); err != nil {
		return err
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.MatrixWorkers != nil && *c.MatrixWorkers < 0 {
		return fmt.Errorf("matrix_workers must be non-negative, got %d", *c.MatrixWorkers)
	}
	return nil
}

func (c *SweepConfig) epsilons() ([]float64, error) {
	spec := DefaultEpsilons
	if c.Epsilons != nil {
		spec = string(*c.Epsilons)
	}
	return sweep.ParseParamList(spec)
}

func (c *SweepConfig) minPoints() ([]int, error) {
	spec := DefaultMinPoints
	if c.MinPoints != nil {
		spec = string(*c.MinPoints)
	}
	return sweep.ParseIntParamList(spec)
}

// GetEpsilons returns the eps values to sweep, or the default list.
func (c *SweepConfig) GetEpsilons() []float64 {
	eps, err := c.epsilons()
	if err != nil || len(eps) == 0 {
		eps, _ = sweep.ParseParamList(DefaultEpsilons)
	}
	return eps
}

// GetMinPoints returns the minPts values to sweep, or the default list.
func (c *SweepConfig) GetMinPoints() []int {
	minPts, err := c.minPoints()
	if err != nil || len(minPts) == 0 {
		minPts, _ = sweep.ParseIntParamList(DefaultMinPoints)
	}
	return minPts
}

// GetMetric returns the metric name or the default.
func (c *SweepConfig) GetMetric() string {
	if c.Metric == nil || *c.Metric == "" {
		return DefaultMetric
	}
	return *c.Metric
}

// GetIndex returns the index kind name or the default.
func (c *SweepConfig) GetIndex() string {
	if c.Index == nil || *c.Index == "" {
		return DefaultIndex
	}
	return *c.Index
}

// GetWorkers returns the sweep worker count. Zero or unset means one worker
// per CPU.
func (c *SweepConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetMatrixWorkers returns the distance matrix worker count. Zero or unset
// means one worker per CPU.
func (c *SweepConfig) GetMatrixWorkers() int {
	if c.MatrixWorkers == nil || *c.MatrixWorkers <= 0 {
		return runtime.NumCPU()
	}
	return *c.MatrixWorkers
}

// GetFailFast returns the fail_fast value or the default.
func (c *SweepConfig) GetFailFast() bool {
	if c.FailFast == nil {
		return false // default
	}
	return *c.FailFast
}

// GetReportPath returns the report path or the default.
func (c *SweepConfig) GetReportPath() string {
	if c.ReportPath == nil || *c.ReportPath == "" {
		return DefaultReportPath
	}
	return *c.ReportPath
}

// GetSummaryPath returns the CSV summary path; empty disables the summary.
func (c *SweepConfig) GetSummaryPath() string {
	if c.SummaryPath == nil {
		return ""
	}
	return *c.SummaryPath
}

// GetDatabasePath returns the SQLite path; empty disables persistence.
func (c *SweepConfig) GetDatabasePath() string {
	if c.DatabasePath == nil {
		return ""
	}
	return *c.DatabasePath
}

// GetChartDir returns the chart output directory; empty disables charts.
func (c *SweepConfig) GetChartDir() string {
	if c.ChartDir == nil {
		return ""
	}
	return *c.ChartDir
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

// Overrides holds command-line values that replace config fields. Nil fields
// leave the config untouched.
type Overrides struct {
	Epsilons      *string
	MinPoints     *string
	Metric        *string
	Index         *string
	Workers       *int
	MatrixWorkers *int
	FailFast      *bool
	ReportPath    *string
	SummaryPath   *string
	DatabasePath  *string
	ChartDir      *string
}

// Apply copies the set overrides into c and revalidates it.
func (c *SweepConfig) Apply(o Overrides) error {
	if o.Epsilons != nil {
		v := ValueList(*o.Epsilons)
		c.Epsilons = &v
	}
	if o.MinPoints != nil {
		v := ValueList(*o.MinPoints)
		c.MinPoints = &v
	}
	if o.Metric != nil {
		c.Metric = ptrString(*o.Metric)
	}
	if o.Index != nil {
		c.Index = ptrString(*o.Index)
	}
	if o.Workers != nil {
		c.Workers = ptrInt(*o.Workers)
	}
	if o.MatrixWorkers != nil {
		c.MatrixWorkers = ptrInt(*o.MatrixWorkers)
	}
	if o.FailFast != nil {
		c.FailFast = ptrBool(*o.FailFast)
	}
	if o.ReportPath != nil {
		c.ReportPath = ptrString(*o.ReportPath)
	}
	if o.SummaryPath != nil {
		c.SummaryPath = ptrString(*o.SummaryPath)
	}
	if o.DatabasePath != nil {
		c.DatabasePath = ptrString(*o.DatabasePath)
	}
	if o.ChartDir != nil {
		c.ChartDir = ptrString(*o.ChartDir)
	}
	return c.Validate()
}
