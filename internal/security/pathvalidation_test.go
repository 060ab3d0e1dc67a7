package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	// Create directories for symlink tests
	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	if err := os.MkdirAll(safeDir, 0755); err != nil {
		t.Fatalf("Failed to create safe directory: %v", err)
	}
	if err := os.MkdirAll(unsafeDir, 0755); err != nil {
		t.Fatalf("Failed to create unsafe directory: %v", err)
	}

	// Create a file in the unsafe directory
	unsafeFile := filepath.Join(unsafeDir, "secret.txt")
	if err := os.WriteFile(unsafeFile, []byte("secret"), 0644); err != nil {
		t.Fatalf("Failed to create unsafe file: %v", err)
	}

	// Create a symlink inside safe directory pointing to unsafe directory
	symlinkPath := filepath.Join(safeDir, "evil-symlink")
	if err := os.Symlink(unsafeDir, symlinkPath); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{
			name:      "valid path within directory",
			filePath:  filepath.Join(tmpDir, "file.txt"),
			safeDir:   tmpDir,
			wantError: false,
		},
		{
			name:      "valid nested path",
			filePath:  filepath.Join(tmpDir, "subdir", "file.txt"),
			safeDir:   tmpDir,
			wantError: false,
		},
		{
			name:      "path traversal with ..",
			filePath:  filepath.Join(tmpDir, "..", "file.txt"),
			safeDir:   tmpDir,
			wantError: true,
		},
		{
			name:      "path traversal at start",
			filePath:  "../../../etc/passwd",
			safeDir:   tmpDir,
			wantError: true,
		},
		{
			name:      "absolute path outside safe dir",
			filePath:  "/etc/passwd",
			safeDir:   tmpDir,
			wantError: true,
		},
		{
			name:      "symlink escape attack - following symlink to outside dir",
			filePath:  filepath.Join(symlinkPath, "secret.txt"),
			safeDir:   safeDir,
			wantError: true,
		},
		{
			name:      "symlink escape attack - accessing symlink directly",
			filePath:  symlinkPath,
			safeDir:   safeDir,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plot_17", "plot_17"},
		{"tree 01 (north).txt", "tree_01_north_.txt"},
		{"../../etc/passwd", "etc_passwd"},
		{"", "unknown"},
		{"...", "unknown"},
		{"a///b", "a_b"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("x", 300)
	if got := SanitizeFilename(long); len(got) != 128 {
		t.Errorf("expected truncation to 128, got %d", len(got))
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()

	got := OutputPath(dir, "/scans/plot 3/tree_07.txt", ".ply")
	if want := filepath.Join(dir, "tree_07.ply"); got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
	if err := ValidatePathWithinDirectory(got, dir); err != nil {
		t.Errorf("OutputPath result failed validation: %v", err)
	}

	got = OutputPath(dir, "../../escape.txt", ".ply")
	if filepath.Dir(got) != dir {
		t.Errorf("OutputPath escaped output dir: %q", got)
	}

	got = OutputPath("out", "scan #4 (east).xyz.txt", ".asc")
	if want := filepath.Join("out", "scan_4_east_.xyz.asc"); got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
}
