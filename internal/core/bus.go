// Package core holds the state shared across detectors: the two global
// flags from §3/§9 (read_error, source_decay), collected as fields of a
// single owning Bus rather than package-level globals, per the design
// notes' "single owner" guidance. The tick loop is the sole writer; the
// ground-link HTTP handlers only read it, through the locked accessors.
package core

import "sync"

// Bus owns the cross-detector flags. All detector methods take a *Bus.
type Bus struct {
	mu sync.Mutex

	// ReadError is set by any detector whose sensor read returned an
	// error, and cleared only by the read-error detector's delayed
	// follow-up probe.
	readError bool

	// SourceDecay is set latchingly by the source-decay handler. Once
	// set it also halves the chronic-idle sampling interval.
	sourceDecay bool
}

// SetReadError sets or clears the global read-error flag.
func (b *Bus) SetReadError(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readError = v
}

// ReadError reports the current read-error flag.
func (b *Bus) ReadError() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readError
}

// SetSourceDecay latches the source-decay flag. It is never cleared; the
// flag is sticky for the rest of the mission phase.
func (b *Bus) SetSourceDecay() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sourceDecay = true
}

// SourceDecay reports whether the source-decay fault has latched.
func (b *Bus) SourceDecay() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sourceDecay
}

// PassReqDivisor returns the divisor chronic-idle's cadence is run
// through: source_decay_flag + 1, per §4.2/§9 (decayed source production
// makes idle evaluation more aggressive).
func (b *Bus) PassReqDivisor() uint64 {
	if b.SourceDecay() {
		return 2
	}
	return 1
}

// Snapshot is a read-only copy of Bus state for status reporting.
type Snapshot struct {
	ReadError   bool
	SourceDecay bool
}

// Snapshot returns the current flag values.
func (b *Bus) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{ReadError: b.readError, SourceDecay: b.sourceDecay}
}
