package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/stepbom/pkg/kernel"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScriptKernelOpen(t *testing.T) {
	path := writeFile(t, "frame.lignin", `
(defpart "bracket" (box 40 20 5) :surface-color (rgb 1 0 0))
(assembly "frame" (part "bracket") (place (part "bracket") :at (vec3 0 0 50)))
`)
	k := NewScriptKernel(WithAnalysisCells(16), WithEvalTimeout(10*time.Second))
	if k.Name() != "sdfx" || k.Available() != nil {
		t.Fatalf("kernel %s not available", k.Name())
	}

	var roots int
	err := kernel.Use(context.Background(), k, path, func(doc kernel.Document) error {
		free, err := doc.Shapes().FreeShapes()
		roots = len(free)
		return err
	})
	if err != nil {
		t.Fatalf("Use: %v", err)
	}
	if roots != 1 {
		t.Errorf("free shapes = %d, want 1", roots)
	}
}

func TestScriptKernelMissingFile(t *testing.T) {
	k := NewScriptKernel()
	_, err := k.Open(context.Background(), filepath.Join(t.TempDir(), "none.lignin"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open error = %v, want not-exist", err)
	}
}

func TestScriptKernelEvalError(t *testing.T) {
	path := writeFile(t, "bad.lignin", `(defpart "a" (sphere 1))
(part "missing")`)
	_, err := NewScriptKernel().Open(context.Background(), path)
	if err == nil {
		t.Fatal("expected evaluation error")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error = %v", err)
	}
}
