package config

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/banshee-data/dbscan-sweep/internal/fsutil"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptySweepConfigDefaults(t *testing.T) {
	cfg := EmptySweepConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty config should validate: %v", err)
	}
	if got := cfg.GetEpsilons(); !reflect.DeepEqual(got, []float64{1, 2, 3, 4}) {
		t.Errorf("GetEpsilons() = %v, want [1 2 3 4]", got)
	}
	if got := cfg.GetMinPoints(); !reflect.DeepEqual(got, []int{2, 4, 6}) {
		t.Errorf("GetMinPoints() = %v, want [2 4 6]", got)
	}
	if cfg.GetMetric() != "euclidean" {
		t.Errorf("GetMetric() = %q, want euclidean", cfg.GetMetric())
	}
	if cfg.GetIndex() != "auto" {
		t.Errorf("GetIndex() = %q, want auto", cfg.GetIndex())
	}
	if cfg.GetWorkers() != runtime.NumCPU() {
		t.Errorf("GetWorkers() = %d, want %d", cfg.GetWorkers(), runtime.NumCPU())
	}
	if cfg.GetMatrixWorkers() != runtime.NumCPU() {
		t.Errorf("GetMatrixWorkers() = %d, want %d", cfg.GetMatrixWorkers(), runtime.NumCPU())
	}
	if cfg.GetFailFast() {
		t.Error("GetFailFast() = true, want false")
	}
	if cfg.GetReportPath() != "output.txt" {
		t.Errorf("GetReportPath() = %q, want output.txt", cfg.GetReportPath())
	}
	if cfg.GetSummaryPath() != "" || cfg.GetDatabasePath() != "" || cfg.GetChartDir() != "" {
		t.Error("optional outputs should be disabled by default")
	}
}

func TestLoadSweepConfig(t *testing.T) {
	path := writeConfig(t, "sweep.json", `{
  "epsilons": "0.5:1.5:0.5",
  "min_points": [3, 5],
  "metric": "manhattan",
  "index": "grid",
  "workers": 2,
  "matrix_workers": 4,
  "fail_fast": true,
  "report_path": "out/report.txt",
  "summary_path": "out/summary.csv",
  "database_path": "out/sweeps.db",
  "chart_dir": "out/charts"
}`)

	cfg, err := LoadSweepConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.GetEpsilons(); !reflect.DeepEqual(got, []float64{0.5, 1, 1.5}) {
		t.Errorf("GetEpsilons() = %v", got)
	}
	if got := cfg.GetMinPoints(); !reflect.DeepEqual(got, []int{3, 5}) {
		t.Errorf("GetMinPoints() = %v", got)
	}
	if cfg.GetMetric() != "manhattan" || cfg.GetIndex() != "grid" {
		t.Errorf("unexpected metric/index %q/%q", cfg.GetMetric(), cfg.GetIndex())
	}
	if cfg.GetWorkers() != 2 || cfg.GetMatrixWorkers() != 4 || !cfg.GetFailFast() {
		t.Errorf("unexpected engine settings %+v", cfg)
	}
	if cfg.GetReportPath() != "out/report.txt" || cfg.GetSummaryPath() != "out/summary.csv" ||
		cfg.GetDatabasePath() != "out/sweeps.db" || cfg.GetChartDir() != "out/charts" {
		t.Errorf("unexpected output paths %+v", cfg)
	}
}

func TestLoadSweepConfigPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"min_points": "4"}`)

	cfg, err := LoadSweepConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Epsilons != nil {
		t.Errorf("Epsilons should be nil, got %v", *cfg.Epsilons)
	}
	if got := cfg.GetEpsilons(); !reflect.DeepEqual(got, []float64{1, 2, 3, 4}) {
		t.Errorf("GetEpsilons() = %v, want defaults", got)
	}
	if got := cfg.GetMinPoints(); !reflect.DeepEqual(got, []int{4}) {
		t.Errorf("GetMinPoints() = %v, want [4]", got)
	}
}

func TestLoadSweepConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"malformed json", "bad.json", `{"workers": `, "failed to parse"},
		{"unknown field", "typo.json", `{"epsilon": [1]}`, "unknown field"},
		{"string workers", "types.json", `{"workers": "two"}`, "failed to parse"},
		{"non-numeric list", "list.json", `{"epsilons": ["a"]}`, "failed to parse"},
		{"negative eps", "eps.json", `{"epsilons": [1, -2]}`, "invalid eps"},
		{"zero min points", "minpts.json", `{"min_points": [0]}`, "invalid minPts"},
		{"empty eps", "empty.json", `{"epsilons": ""}`, "at least one eps"},
		{"bad range", "range.json", `{"epsilons": "4:1:1"}`, "invalid epsilons"},
		{"unknown metric", "metric.json", `{"metric": "cosine"}`, "cosine"},
		{"unknown index", "index.json", `{"index": "kd"}`, "kd"},
		{"negative workers", "workers.json", `{"workers": -1}`, "workers must be non-negative"},
		{"negative matrix workers", "mworkers.json", `{"matrix_workers": -1}`, "matrix_workers must be non-negative"},
		{"not json extension", "sweep.yaml", `{}`, ".json extension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadSweepConfig(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSweepConfigMissing(t *testing.T) {
	if _, err := LoadSweepConfig("/nonexistent/path/to/config.json"); err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadSweepConfigRejectsLargeFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("big.json", []byte(`{"metric": "`+strings.Repeat("x", maxFileSize)+`"}`))

	_, err := LoadSweepConfigFS(fsys, "big.json")
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	if got := cfg.GetEpsilons(); !reflect.DeepEqual(got, []float64{1, 2, 3, 4}) {
		t.Errorf("defaults file epsilons = %v", got)
	}
	if got := cfg.GetMinPoints(); !reflect.DeepEqual(got, []int{2, 4, 6}) {
		t.Errorf("defaults file min_points = %v", got)
	}
	if cfg.GetReportPath() != DefaultReportPath {
		t.Errorf("defaults file report_path = %q", cfg.GetReportPath())
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	err := cfg.Apply(Overrides{
		Epsilons:    ptrString("1.5"),
		MinPoints:   ptrString("2:3:1"),
		Metric:      ptrString("chebyshev"),
		Workers:     ptrInt(1),
		FailFast:    ptrBool(true),
		SummaryPath: ptrString("summary.csv"),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got := cfg.GetEpsilons(); !reflect.DeepEqual(got, []float64{1.5}) {
		t.Errorf("GetEpsilons() = %v", got)
	}
	if got := cfg.GetMinPoints(); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("GetMinPoints() = %v", got)
	}
	if cfg.GetMetric() != "chebyshev" || cfg.GetWorkers() != 1 || !cfg.GetFailFast() {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.GetSummaryPath() != "summary.csv" || cfg.GetReportPath() != DefaultReportPath {
		t.Errorf("unexpected paths %q %q", cfg.GetSummaryPath(), cfg.GetReportPath())
	}

	if err := cfg.Apply(Overrides{Index: ptrString("kd")}); err == nil {
		t.Error("expected invalid override to fail validation")
	}
}

func TestValueListUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want ValueList
	}{
		{`[1, 2.5, 3]`, "1,2.5,3"},
		{`"1:4:1"`, "1:4:1"},
		{`"2,4"`, "2,4"},
		{` [] `, ""},
	}
	for _, tt := range tests {
		var v ValueList
		if err := v.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Errorf("UnmarshalJSON(%s) failed: %v", tt.in, err)
			continue
		}
		if v != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %q, want %q", tt.in, v, tt.want)
		}
	}

	var v ValueList
	if err := v.UnmarshalJSON([]byte(`{"a": 1}`)); err == nil {
		t.Error("expected error for object")
	}
}
