package cli

import (
	"bytes"
	"strings"
	"testing"

	"mercator-hq/tabula/pkg/export"
)

func TestBarProgress_Persisted(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewBarProgress(buf)

	p.Started("0d9c7a3e-5b1f-4c4e-9e57-1f3a2b4c5d6e", 3)
	p.StateChanged("0d9c7a3e", export.StateAppending, export.StateAppending)
	p.BatchWritten("0d9c7a3e", 2, 2)
	p.BatchWritten("0d9c7a3e", 2, 4) // a record added after counting
	p.StateChanged("0d9c7a3e", export.StateAppending, export.StateFinalizing)
	p.StateChanged("0d9c7a3e", export.StateFinalizing, export.StatePersisted)

	out := buf.String()
	if !strings.Contains(out, "0d9c7a3e") {
		t.Errorf("expected short export id in output, got %q", out)
	}
	if p.total != 4 {
		t.Errorf("total = %d, want 4", p.total)
	}
	if p.bar != nil {
		t.Error("bar should be released after the export ends")
	}
}

func TestBarProgress_Aborted(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewBarProgress(buf)

	p.Started("abc", 10)
	p.BatchWritten("abc", 5, 5)
	p.StateChanged("abc", export.StateAppending, export.StateAborted)

	if !strings.Contains(buf.String(), "aborted while appending") {
		t.Errorf("expected abort message, got %q", buf.String())
	}
}

func TestBarProgress_EmptyScope(t *testing.T) {
	p := NewBarProgress(&bytes.Buffer{})

	// A spinner is used when nothing matched; finishing must not panic.
	p.Started("abc", 0)
	p.StateChanged("abc", export.StateFileInitialized, export.StateFinalizing)
	p.StateChanged("abc", export.StateFinalizing, export.StatePersisted)
}

func TestBarProgress_IgnoresCallsWithoutStart(t *testing.T) {
	p := NewBarProgress(&bytes.Buffer{})
	p.BatchWritten("abc", 1, 1)
	p.StateChanged("abc", export.StateCreated, export.StateAborted)
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789"); got != "01234567" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() = %q", got)
	}
}
