package bom

import "fmt"

// DefaultMaxDepth bounds the Walker's recursion on malformed documents.
const DefaultMaxDepth = 64

type options struct {
	maxDepth int
	verbose  bool
	stats    *Stats
}

// Option configures a Walker or Lister.
type Option func(*options)

// WithMaxDepth sets the deepest level the Walker descends to. Nodes below
// it are reported with a processing error instead of children.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// WithVerbose logs every per-node processing error.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

// WithStats shares a statistics accumulator across traversals.
func WithStats(s *Stats) Option {
	return func(o *options) {
		if s != nil {
			o.stats = s
		}
	}
}

func newOptions(opts []Option) options {
	o := options{maxDepth: DefaultMaxDepth, stats: &Stats{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Stats accumulates entity and error counts over one extraction.
type Stats struct {
	Entities int
	Errors   []string
}

// Entity records one processed label.
func (s *Stats) Entity() {
	s.Entities++
}

// Error records a failure message.
func (s *Stats) Error(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}
