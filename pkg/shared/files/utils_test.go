package files

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetermineFileFullPath(t *testing.T) {
	type testCase struct {
		name         string
		inputPath    string
		nameTemplate string
		expectFile   string
		expectFolder string
		setup        func(t *testing.T) (inputPath, expectFile, expectFolder string)
	}

	tmpDir := t.TempDir()

	tests := []testCase{
		{
			name:         "Directory path with name template",
			inputPath:    tmpDir,
			nameTemplate: "yarascan-report.json",
			expectFile:   filepath.Join(tmpDir, "yarascan-report.json"),
			expectFolder: tmpDir,
		},
		{
			name:         "Existing report file",
			inputPath:    filepath.Join(tmpDir, "report.sarif"),
			nameTemplate: "ignored.txt",
			expectFile:   filepath.Join(tmpDir, "report.sarif"),
			expectFolder: tmpDir,
			setup: func(t *testing.T) (string, string, string) {
				f := filepath.Join(tmpDir, "report.sarif")
				_ = os.WriteFile(f, []byte("test"), 0644)
				return f, f, tmpDir
			},
		},
		{
			name:         "Path with no extension, treat as folder",
			inputPath:    filepath.Join(tmpDir, "reports"),
			nameTemplate: "yarascan-report.md",
			expectFile:   filepath.Join(tmpDir, "reports", "yarascan-report.md"),
			expectFolder: filepath.Join(tmpDir, "reports"),
		},
		{
			name:         "Non-existent file with extension",
			inputPath:    filepath.Join(tmpDir, "matches.jsonl"),
			nameTemplate: "ignored.txt",
			expectFile:   filepath.Join(tmpDir, "matches.jsonl"),
			expectFolder: tmpDir,
		},
		{
			name:         "Non-existent folder",
			inputPath:    filepath.Join(tmpDir, "missing_folder"),
			nameTemplate: "yarascan-report.json",
			expectFile:   filepath.Join(tmpDir, "missing_folder", "yarascan-report.json"),
			expectFolder: filepath.Join(tmpDir, "missing_folder"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actualPath := tt.inputPath
			expectFile := tt.expectFile
			expectFolder := tt.expectFolder

			if tt.setup != nil {
				actualPath, expectFile, expectFolder = tt.setup(t)
			}

			filePath, folderPath, err := DetermineFileFullPath(actualPath, tt.nameTemplate)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if filePath != expectFile {
				t.Errorf("Expected file path %s, got %s", expectFile, filePath)
			}
			if folderPath != expectFolder {
				t.Errorf("Expected folder path %s, got %s", expectFolder, folderPath)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "rules.yar")
	if err := os.WriteFile(file, []byte("rule a { condition: true }"), 0644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := ValidatePath(file); err != nil {
		t.Errorf("Expected regular file to validate, got %v", err)
	}
	if err := ValidatePath(tmpDir); err == nil {
		t.Errorf("Expected an error for a directory")
	}
	if err := ValidatePath(filepath.Join(tmpDir, "missing.yar")); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
}

func TestWriteFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.json")
	if err := WriteFile(target, []byte("[]")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := WriteFile(target, []byte("[1]")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(data) != "[1]" {
		t.Errorf("Expected truncated content, got %q", data)
	}
}
