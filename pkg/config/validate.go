package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidPattern indicates a glob pattern that does not compile.
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrEmptyPatterns indicates no input patterns are configured.
	ErrEmptyPatterns = errors.New("empty input patterns")

	// ErrEmptyOutputDir indicates a missing output directory.
	ErrEmptyOutputDir = errors.New("empty output directory")

	// ErrInvalidResolution indicates a non-positive marching cubes resolution.
	ErrInvalidResolution = errors.New("invalid kernel resolution")

	// ErrInvalidTimeout indicates a non-positive evaluation timeout.
	ErrInvalidTimeout = errors.New("invalid evaluation timeout")

	// ErrInvalidDepth indicates a non-positive traversal depth bound.
	ErrInvalidDepth = errors.New("invalid traversal depth")
)

// Validate checks that the configuration is valid and complete. All
// violations are reported together.
func Validate(cfg *Config) error {
	return errors.Join(
		validateInput(&cfg.Input),
		validateOutput(&cfg.Output),
		validateKernel(&cfg.Kernel),
		validateTraversal(&cfg.Traversal),
	)
}

func validateInput(cfg *InputConfig) error {
	var errs []error
	if len(cfg.Patterns) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one pattern required", ErrEmptyPatterns))
	}
	for _, p := range append(append([]string{}, cfg.Patterns...), cfg.Ignore...) {
		if _, err := glob.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err))
		}
	}
	return errors.Join(errs...)
}

func validateOutput(cfg *OutputConfig) error {
	if strings.TrimSpace(cfg.Dir) == "" {
		return fmt.Errorf("%w: output.dir is required", ErrEmptyOutputDir)
	}
	return nil
}

func validateKernel(cfg *KernelConfig) error {
	var errs []error
	if cfg.AnalysisCells <= 0 {
		errs = append(errs, fmt.Errorf("%w: analysis_cells must be positive, got %d", ErrInvalidResolution, cfg.AnalysisCells))
	}
	if cfg.MeshCells <= 0 {
		errs = append(errs, fmt.Errorf("%w: mesh_cells must be positive, got %d", ErrInvalidResolution, cfg.MeshCells))
	}
	if cfg.EvalTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: eval_timeout must be positive, got %s", ErrInvalidTimeout, cfg.EvalTimeout))
	}
	return errors.Join(errs...)
}

func validateTraversal(cfg *TraversalConfig) error {
	if cfg.MaxDepth <= 0 {
		return fmt.Errorf("%w: max_depth must be positive, got %d", ErrInvalidDepth, cfg.MaxDepth)
	}
	return nil
}
