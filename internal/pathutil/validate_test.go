package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tmpDir := t.TempDir()
	realFile := filepath.Join(tmpDir, "report.xml")
	if err := os.WriteFile(realFile, []byte("<report/>"), 0o600); err != nil {
		t.Fatalf("create test file: %v", err)
	}
	symlinkPath := filepath.Join(tmpDir, "latest.xml")
	if err := os.Symlink(realFile, symlinkPath); err != nil {
		t.Fatalf("create symlink: %v", err)
	}
	realTmp, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{name: "empty path", path: "", wantErr: ErrEmptyPath},
		{name: "null byte", path: "build/\x00report.xml", wantErr: ErrNullBytes},
		{name: "missing file is cleaned", path: "build/../build/./kover/report.xml", want: filepath.Join("build", "kover", "report.xml")},
		{name: "symlink resolved", path: symlinkPath, want: filepath.Join(realTmp, "report.xml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePath(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ValidatePath(%q) error = %v, want %v", tt.path, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidatePath(%q) unexpected error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("ValidatePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestClassFilePath(t *testing.T) {
	got := ClassFilePath("build/classes", "com.example.Foo$Bar")
	want := filepath.Join("build", "classes", "com", "example", "Foo$Bar.class")
	if got != want {
		t.Errorf("ClassFilePath = %q, want %q", got, want)
	}
}

func TestClassName(t *testing.T) {
	tests := []struct {
		internal string
		class    string
	}{
		{internal: "com/example/Foo", class: "com.example.Foo"},
		{internal: "com/example/Foo$1", class: "com.example.Foo$1"},
		{internal: "Main", class: "Main"},
	}
	for _, tt := range tests {
		t.Run(tt.internal, func(t *testing.T) {
			if got := ClassName(tt.internal); got != tt.class {
				t.Errorf("ClassName = %q, want %q", got, tt.class)
			}
		})
	}
}
