package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// batchProgress reports per-file progress of an extraction batch.
type batchProgress struct {
	quiet bool
	out   io.Writer
	bar   *progressbar.ProgressBar
}

func newBatchProgress(out io.Writer, total int, quiet bool) *batchProgress {
	p := &batchProgress{quiet: quiet, out: out}
	if quiet {
		return p
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)
	return p
}

func (p *batchProgress) start(file string) {
	if p.bar != nil {
		p.bar.Describe(fmt.Sprintf("Extracting %s", file))
	}
}

func (p *batchProgress) done() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *batchProgress) finish(processed, failed int, elapsed time.Duration) {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "✓ Extracted %d of %d files in %.1fs\n", processed-failed, processed, elapsed.Seconds())
}
