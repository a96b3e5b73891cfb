package autodetect

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("<report/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func mkdir(t *testing.T, root, rel string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(rel)), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDetectGradleMultiModule(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "build/reports/kover/report.xml")
	mkdir(t, root, "build/classes/kotlin/main")
	touch(t, root, "core/build/reports/kover/report.xml")
	mkdir(t, root, "core/build/classes/kotlin/main")
	mkdir(t, root, "core/src/main/kotlin")
	mkdir(t, root, "core/src/main/java")
	mkdir(t, root, ".gradle/build/classes/kotlin/main")

	cfg, err := Detector{Root: root}.Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if want := []string{"build/reports/kover/report.xml", "core/build/reports/kover/report.xml"}; !equal(cfg.Reports, want) {
		t.Fatalf("expected reports %v, got %v", want, cfg.Reports)
	}
	if want := []string{"build/classes/kotlin/main", "core/build/classes/kotlin/main"}; !equal(cfg.ClassDirs, want) {
		t.Fatalf("expected class dirs %v, got %v", want, cfg.ClassDirs)
	}
	if want := []string{"core/src/main/kotlin", "core/src/main/java"}; !equal(cfg.SourceDirs, want) {
		t.Fatalf("expected source dirs %v, got %v", want, cfg.SourceDirs)
	}
	if cfg.TempDir != "build/tmp/covergate" {
		t.Fatalf("expected gradle temp dir, got %q", cfg.TempDir)
	}
}

func TestDetectMaven(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "target/site/jacoco/jacoco.xml")
	mkdir(t, root, "target/classes")
	mkdir(t, root, "src/main/java")

	cfg, err := Detector{Root: root}.Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !equal(cfg.Reports, []string{"target/site/jacoco/jacoco.xml"}) {
		t.Fatalf("unexpected reports %v", cfg.Reports)
	}
	if !equal(cfg.ClassDirs, []string{"target/classes"}) {
		t.Fatalf("unexpected class dirs %v", cfg.ClassDirs)
	}
	if cfg.TempDir != "target/covergate" {
		t.Fatalf("expected maven temp dir, got %q", cfg.TempDir)
	}
}

func TestDetectEmptyProject(t *testing.T) {
	cfg, err := Detector{Root: t.TempDir()}.Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(cfg.Reports) != 0 || len(cfg.ClassDirs) != 0 || cfg.TempDir != "" {
		t.Fatalf("expected nothing detected, got %+v", cfg)
	}
}

func TestDetectMissingRoot(t *testing.T) {
	if _, err := (Detector{Root: filepath.Join(t.TempDir(), "missing")}).Detect(); err == nil {
		t.Fatalf("expected error for missing root")
	}
}
