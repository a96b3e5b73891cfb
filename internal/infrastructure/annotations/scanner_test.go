package annotations

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const javaSource = `package com.example;

import javax.annotation.processing.Generated;
import com.example.meta.Internal;

/**
 * Generated client.
 */
@Generated("openapi")
@SuppressWarnings({"unchecked"})
public class Client {

    @Override
    public String toString() { return "client"; }

    @Internal static class Helper {
    }

    static class Plain {
    }
}
`

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestIndexResolvesClassAnnotations(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "com/example/Client.java", javaSource)
	index := NewIndex([]string{filepath.Join(root, "missing"), root})

	tests := []struct {
		className string
		want      []string
	}{
		{className: "com.example.Client", want: []string{"javax.annotation.processing.Generated", "SuppressWarnings"}},
		{className: "com.example.Client$Helper", want: []string{"com.example.meta.Internal"}},
		{className: "com.example.Client$Plain", want: nil},
		{className: "com.example.Client$1", want: []string{"javax.annotation.processing.Generated", "SuppressWarnings"}},
	}
	for _, tt := range tests {
		t.Run(tt.className, func(t *testing.T) {
			got, err := index.ClassAnnotations(context.Background(), "com.example", "Client.java", tt.className)
			if err != nil {
				t.Fatalf("annotations: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestIndexKotlinImportAlias(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "com/example/Model.kt", `package com.example

import kotlinx.serialization.Serializable as Ser

@Ser
data class Model(val id: Int)
`)
	got, err := NewIndex([]string{root}).ClassAnnotations(context.Background(), "com.example", "Model.kt", "com.example.Model")
	if err != nil {
		t.Fatalf("annotations: %v", err)
	}
	if len(got) != 1 || got[0] != "kotlinx.serialization.Serializable" {
		t.Fatalf("unexpected annotations %v", got)
	}
}

func TestIndexIgnoresMissingFile(t *testing.T) {
	got, err := NewIndex([]string{t.TempDir()}).ClassAnnotations(context.Background(), "com.example", "Missing.java", "com.example.Missing")
	if err != nil {
		t.Fatalf("expected missing file to be ignored: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no annotations, got %v", got)
	}
}

func TestIndexWithoutSourceDirs(t *testing.T) {
	got, err := NewIndex(nil).ClassAnnotations(context.Background(), "com.example", "A.java", "com.example.A")
	if err != nil || got != nil {
		t.Fatalf("expected nothing, got %v, %v", got, err)
	}
}

func TestDeclaredName(t *testing.T) {
	tests := map[string]string{
		"com.example.A":           "A",
		"A":                       "A",
		"com.example.A$B":         "B",
		"com.example.A$B$1":       "B",
		"com.example.A$1$2":       "A",
		"com.example.A$Companion": "Companion",
	}
	for in, want := range tests {
		if got := declaredName(in); got != want {
			t.Errorf("declaredName(%q) = %q, want %q", in, got, want)
		}
	}
}
