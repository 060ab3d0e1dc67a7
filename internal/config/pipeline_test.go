package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

func TestEmptyPipelineConfigDefaults(t *testing.T) {
	cfg := EmptyPipelineConfig()

	if got := cfg.GetWorkers(); got != runtime.NumCPU() {
		t.Errorf("GetWorkers() = %d, want %d", got, runtime.NumCPU())
	}
	if got := cfg.GetTreeSuffix(); got != "_raycloud_trees.txt" {
		t.Errorf("GetTreeSuffix() = %q", got)
	}
	if got := cfg.GetPointsSuffix(); got != ".txt" {
		t.Errorf("GetPointsSuffix() = %q", got)
	}
	if got := cfg.GetCloudSuffix(); got != ".ply" {
		t.Errorf("GetCloudSuffix() = %q", got)
	}
	if got := cfg.GetExtractorCommand(); got != "rayextract_tree_mesh.sh" {
		t.Errorf("GetExtractorCommand() = %q", got)
	}
	if got := cfg.GetExtractorTimeout(); got != 10*time.Minute {
		t.Errorf("GetExtractorTimeout() = %v", got)
	}
	if got := cfg.GetVolumeUnit(); got != "m3" {
		t.Errorf("GetVolumeUnit() = %q", got)
	}
	if got := cfg.GetHistogramBins(); got != 20 {
		t.Errorf("GetHistogramBins() = %d", got)
	}
	if got := cfg.GetDBPath(); got != "treevolume.db" {
		t.Errorf("GetDBPath() = %q", got)
	}
}

func TestLoadPipelineConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pipeline.json")

	testJSON := `{
  "workers": 3,
  "tree_suffix": "_trees.txt",
  "extractor_command": "/opt/raycloudtools/scripts/rayextract_tree_mesh.sh",
  "extractor_args": ["--quiet"],
  "extractor_timeout": "90s",
  "volume_unit": "l",
  "histogram_bins": 8
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadPipelineConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetWorkers() != 3 {
		t.Errorf("Expected workers 3, got %d", cfg.GetWorkers())
	}
	if cfg.GetTreeSuffix() != "_trees.txt" {
		t.Errorf("Expected tree suffix _trees.txt, got %q", cfg.GetTreeSuffix())
	}
	if cfg.GetExtractorCommand() != "/opt/raycloudtools/scripts/rayextract_tree_mesh.sh" {
		t.Errorf("unexpected extractor command %q", cfg.GetExtractorCommand())
	}
	if len(cfg.ExtractorArgs) != 1 || cfg.ExtractorArgs[0] != "--quiet" {
		t.Errorf("unexpected extractor args %v", cfg.ExtractorArgs)
	}
	if cfg.GetExtractorTimeout() != 90*time.Second {
		t.Errorf("Expected timeout 90s, got %v", cfg.GetExtractorTimeout())
	}
	if cfg.GetVolumeUnit() != "l" {
		t.Errorf("Expected unit l, got %q", cfg.GetVolumeUnit())
	}
	if cfg.GetHistogramBins() != 8 {
		t.Errorf("Expected 8 bins, got %d", cfg.GetHistogramBins())
	}
	// untouched fields keep defaults
	if cfg.GetCloudSuffix() != ".ply" {
		t.Errorf("Expected default cloud suffix, got %q", cfg.GetCloudSuffix())
	}
}

func TestLoadPipelineConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", "/nonexistent/path/to/config.json"},
		{"wrong extension", write("config.yaml", "{}")},
		{"invalid json", write("broken.json", `{"workers": "many"`)},
		{"fails validation", write("invalid.json", `{"volume_unit": "gallon"}`)},
		{"too large", write("huge.json", `{"db_path": "`+strings.Repeat("x", 1024*1024)+`"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadPipelineConfig(tt.path); err == nil {
				t.Errorf("Expected error loading %s, got nil", tt.path)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *PipelineConfig
		wantErr bool
	}{
		{"empty config is valid", &PipelineConfig{}, false},
		{"zero workers means auto", &PipelineConfig{Workers: ptrInt(0)}, false},
		{"negative workers", &PipelineConfig{Workers: ptrInt(-2)}, true},
		{"empty suffix", &PipelineConfig{TreeSuffix: ptrString("")}, true},
		{"suffix with separator", &PipelineConfig{CloudSuffix: ptrString("/x.ply")}, true},
		{"invalid timeout", &PipelineConfig{ExtractorTimeout: ptrString("soon")}, true},
		{"non-positive timeout", &PipelineConfig{ExtractorTimeout: ptrString("-5s")}, true},
		{"valid timeout", &PipelineConfig{ExtractorTimeout: ptrString("2m")}, false},
		{"unknown unit", &PipelineConfig{VolumeUnit: ptrString("gallon")}, true},
		{"zero bins", &PipelineConfig{HistogramBins: ptrInt(0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetExtractorTimeout(t *testing.T) {
	tests := []struct {
		name string
		cfg  *PipelineConfig
		want time.Duration
	}{
		{"explicit", &PipelineConfig{ExtractorTimeout: ptrString("45s")}, 45 * time.Second},
		{"nil pointer returns default", &PipelineConfig{}, 10 * time.Minute},
		{"empty string returns default", &PipelineConfig{ExtractorTimeout: ptrString("")}, 10 * time.Minute},
		{"invalid duration returns default", &PipelineConfig{ExtractorTimeout: ptrString("invalid")}, 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetExtractorTimeout(); got != tt.want {
				t.Errorf("GetExtractorTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}
