// Package safemode implements the produced safe-mode announcement
// interface (§6): a textual announcement followed by a fault identifier,
// plus a bounded in-memory history of fault events for the ground-link API.
package safemode

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Fault identifiers, exactly as named in §6.
const (
	FaultChronicIdle     = "chronic_idle"
	FaultPwrMonReadError = "pwr_mon_read_error"
	FaultSourceDecay     = "source_decay"
)

// Event records one safe-mode entry for the ground-link fault log.
type Event struct {
	ID    uuid.UUID
	Fault string
	At    time.Time
}

// Announcer is the produced safe-mode interface.
type Announcer interface {
	Enter(fault string)
}

// historySize bounds the in-memory fault-event ring; unrelated to and
// larger than any single detector's evidence window.
const historySize = 64

// Writer announces safe-mode entry to an io.Writer in the exact two-line
// format the original firmware prints, and records the event.
type Writer struct {
	mu      sync.Mutex
	out     io.Writer
	now     func() time.Time
	history []Event
}

// NewWriter returns an Announcer writing to out. If now is nil, time.Now
// is used.
func NewWriter(out io.Writer, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{out: out, now: now}
}

func (w *Writer) Enter(fault string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Fprint(w.out, "Entering Safety Mode\n")
	fmt.Fprintf(w.out, "Fault: %s\n", fault)

	ev := Event{ID: uuid.New(), Fault: fault, At: w.now()}
	w.history = append(w.history, ev)
	if len(w.history) > historySize {
		w.history = w.history[len(w.history)-historySize:]
	}
}

// History returns a copy of the recorded fault events, oldest first.
func (w *Writer) History() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Event, len(w.history))
	copy(out, w.history)
	return out
}
