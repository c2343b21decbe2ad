package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/chazu/stepbom/pkg/kernel/sdfx"
)

// Compile-time interface check.
var _ kernel.Kernel = (*ScriptKernel)(nil)

// ScriptKernel opens .lignin assembly descriptions. Every Open evaluates the
// file into a fresh document backed by a fresh sdfx modeler, so sessions
// never share state.
type ScriptKernel struct {
	analysisCells int
	meshCells     int
	timeout       time.Duration
}

// KernelOption configures a ScriptKernel.
type KernelOption func(*ScriptKernel)

// WithAnalysisCells sets the marching cubes resolution for measurements.
func WithAnalysisCells(n int) KernelOption {
	return func(k *ScriptKernel) { k.analysisCells = n }
}

// WithMeshCells sets the marching cubes resolution for viewer meshes.
func WithMeshCells(n int) KernelOption {
	return func(k *ScriptKernel) { k.meshCells = n }
}

// WithEvalTimeout bounds the evaluation of one file.
func WithEvalTimeout(d time.Duration) KernelOption {
	return func(k *ScriptKernel) { k.timeout = d }
}

// NewScriptKernel returns the kernel for .lignin files.
func NewScriptKernel(opts ...KernelOption) *ScriptKernel {
	k := &ScriptKernel{timeout: EvalTimeout}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *ScriptKernel) Name() string     { return "sdfx" }
func (k *ScriptKernel) Available() error { return nil }

// Open reads and evaluates path. Evaluation errors are joined into the
// returned error with their line numbers.
func (k *ScriptKernel) Open(ctx context.Context, path string) (kernel.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	modeler := sdfx.New(sdfx.WithAnalysisCells(k.analysisCells), sdfx.WithMeshCells(k.meshCells))
	eng := NewEngine(modeler, modeler.Geometry(), WithTimeout(k.timeout))

	doc, evalErrs, err := eng.EvaluateContext(ctx, string(src))
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("evaluate %s: %w", path, errors.Join(errs...))
	}
	return doc, nil
}
