package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chazu/stepbom/pkg/config"
	"github.com/chazu/stepbom/pkg/engine"
	"github.com/chazu/stepbom/pkg/kernel"
)

// ErrUnsupportedFormat is returned for a file extension no kernel handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// stepReason explains why STEP files cannot be opened.
const stepReason = "OpenCASCADE not available"

// Registry selects a kernel by file extension. It is built once at startup.
type Registry struct {
	byExt map[string]kernel.Kernel
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]kernel.Kernel)}
}

// Register binds an extension such as ".step" to k.
func (r *Registry) Register(ext string, k kernel.Kernel) {
	r.byExt[strings.ToLower(ext)] = k
}

// For returns the kernel for path.
func (r *Registry) For(path string) (kernel.Kernel, error) {
	ext := strings.ToLower(filepath.Ext(path))
	k, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", path, ErrUnsupportedFormat, ext)
	}
	return k, nil
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// DefaultRegistry serves .lignin descriptions with the script kernel and
// reports STEP files as needing an unavailable kernel.
func DefaultRegistry(cfg config.KernelConfig) *Registry {
	r := NewRegistry()
	r.Register(".lignin", engine.NewScriptKernel(
		engine.WithAnalysisCells(cfg.AnalysisCells),
		engine.WithMeshCells(cfg.MeshCells),
		engine.WithEvalTimeout(cfg.EvalTimeout),
	))
	step := kernel.Unavailable("opencascade", stepReason)
	r.Register(".step", step)
	r.Register(".stp", step)
	return r
}

// isStep reports whether path names a STEP file.
func isStep(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".step", ".stp":
		return true
	}
	return false
}
