package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidateRelativePath(t *testing.T) {
	tests := []struct {
		name      string
		rel       string
		wantError bool
	}{
		{"cityscapes label key", "gtFine/train/aachen/aachen_000000_000019_gtFine_polygons.json", false},
		{"inner dot segments stay inside", "gtFine/train/../val/x.json", false},
		{"empty", "", true},
		{"base directory itself", ".", true},
		{"absolute", "/etc/passwd", true},
		{"parent", "..", true},
		{"leading traversal", "../outside.json", true},
		{"traversal after clean", "gtFine/../../outside.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelativePath(tt.rel)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateRelativePath(%q) error = %v, wantError %v", tt.rel, err, tt.wantError)
			}
			if err != nil && !errors.Is(err, ErrPathTraversal) {
				t.Errorf("error %v does not wrap ErrPathTraversal", err)
			}
		})
	}
}

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	if err := os.MkdirAll(filepath.Join(safeDir, "gtFine", "train", "aachen"), 0755); err != nil {
		t.Fatalf("Failed to create safe directory: %v", err)
	}
	if err := os.MkdirAll(unsafeDir, 0755); err != nil {
		t.Fatalf("Failed to create unsafe directory: %v", err)
	}

	unsafeFile := filepath.Join(unsafeDir, "secret.json")
	if err := os.WriteFile(unsafeFile, []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to create unsafe file: %v", err)
	}

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
			name:      "label file inside tree",
			filePath:  filepath.Join(safeDir, "gtFine", "train", "aachen", "a_gtFine_polygons.json"),
			safeDir:   safeDir,
			wantError: false,
		},
		{
			name:      "not yet existing nested path",
			filePath:  filepath.Join(safeDir, "gtFine", "val", "new", "b_gtFine_polygons.json"),
			safeDir:   safeDir,
			wantError: false,
		},
		{
			name:      "path traversal with ..",
			filePath:  filepath.Join(safeDir, "..", "file.json"),
			safeDir:   safeDir,
			wantError: true,
		},
		{
			name:      "absolute path outside safe dir",
			filePath:  "/etc/passwd",
			safeDir:   safeDir,
			wantError: true,
		},
		{
			name:      "symlink escape through existing file",
			filePath:  filepath.Join(symlinkPath, "secret.json"),
			safeDir:   safeDir,
			wantError: true,
		},
		{
			name:      "symlink escape through missing file",
			filePath:  filepath.Join(symlinkPath, "new.json"),
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
