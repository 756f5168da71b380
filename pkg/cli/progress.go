package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"mercator-hq/tabula/pkg/export"
)

// BarProgress draws a progress bar for a running export. It implements
// pipeline.Observer. One BarProgress follows one export at a time.
type BarProgress struct {
	mu     sync.Mutex
	writer io.Writer
	bar    *progressbar.ProgressBar
	total  int64
}

// NewBarProgress creates a progress bar that writes to w. If w is nil, it
// defaults to os.Stderr.
func NewBarProgress(w io.Writer) *BarProgress {
	if w == nil {
		w = os.Stderr
	}
	return &BarProgress{writer: w}
}

// Started creates the bar sized to the expected row count. An unknown or
// empty count renders a spinner.
func (p *BarProgress) Started(exportID string, expected int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	max := expected
	if max <= 0 {
		max = -1
	}
	p.total = 0
	p.bar = progressbar.NewOptions64(
		max,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionSetDescription("exporting "+shortID(exportID)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionShowIts(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.writer)
		}),
		progressbar.OptionSpinnerType(14),
	)
}

// StateChanged updates the bar description and finishes the bar when the
// export ends.
func (p *BarProgress) StateChanged(exportID string, from, to export.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}

	switch to {
	case export.StateFinalizing:
		p.bar.Describe("saving " + shortID(exportID))
	case export.StatePersisted:
		if p.bar.GetMax64() < p.total {
			p.bar.ChangeMax64(p.total)
		}
		_ = p.bar.Finish()
		p.bar = nil
	case export.StateAborted:
		_ = p.bar.Exit()
		fmt.Fprintf(p.writer, "\n✗ export %s aborted while %s\n", shortID(exportID), from)
		p.bar = nil
	}
}

// BatchWritten advances the bar. Rows added after the scope was counted
// grow the bar instead of overflowing it.
func (p *BarProgress) BatchWritten(exportID string, rows, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}

	p.total = int64(total)
	if max := p.bar.GetMax64(); max >= 0 && p.total > max {
		p.bar.ChangeMax64(p.total)
	}
	_ = p.bar.Set64(p.total)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
