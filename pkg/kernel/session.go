package kernel

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Use opens path with k, runs fn against the document and closes the
// document on every exit path, including a panic inside fn. Sessions are
// never shared: the document is closed before Use returns, so the next
// file always gets a fresh session.
func Use(ctx context.Context, k Kernel, path string, fn func(Document) error) (err error) {
	doc, err := k.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during kernel session: %v", r)
		}
		if cerr := doc.Close(); cerr != nil {
			log.Printf("kernel: close %s: %v", path, cerr)
			err = errors.Join(err, fmt.Errorf("close %s: %w", path, cerr))
		}
	}()

	return fn(doc)
}

// Guard runs fn and converts a panic raised by kernel code into an error.
// Backends whose constructors panic on degenerate input use it at every
// geometry boundary.
func Guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: kernel panic: %v", op, r)
		}
	}()
	return fn()
}
