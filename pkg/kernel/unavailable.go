package kernel

import (
	"context"
	"fmt"
)

// Compile-time interface check.
var _ Kernel = (*unavailableKernel)(nil)

// unavailableKernel stands in for a kernel whose binding could not be
// loaded. Every Open fails with an error wrapping ErrUnavailable.
type unavailableKernel struct {
	name   string
	reason string
}

// Unavailable returns a Kernel that reports itself as unusable. It is
// selected once at startup in place of a binding that is missing from the
// build, so callers record the failure instead of crashing.
func Unavailable(name, reason string) Kernel {
	return &unavailableKernel{name: name, reason: reason}
}

func (k *unavailableKernel) Name() string { return k.name }

func (k *unavailableKernel) Available() error {
	return fmt.Errorf("%s: %s: %w", k.name, k.reason, ErrUnavailable)
}

func (k *unavailableKernel) Open(_ context.Context, _ string) (Document, error) {
	return nil, k.Available()
}
