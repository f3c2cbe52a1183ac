// Package sourcedecay implements the source-decay fault detector (§4.4): a
// power monitor probe that rolls minute readings up through hour, day, and
// month accumulators via internal/aggregate.Pipeline, then compares each
// freshly-closed month against the first month's baseline average.
package sourcedecay

import (
	"errors"
	"sync"

	"gonum.org/v1/gonum/stat"

	"spacecraft/epscore/internal/aggregate"
	"spacecraft/epscore/internal/core"
	"spacecraft/epscore/internal/metrics"
	"spacecraft/epscore/internal/safemode"
	"spacecraft/epscore/internal/sensor"
)

// trendWindow bounds how many recent monthly averages feed the read-only
// decay-trend telemetry. Unrelated to MonthsLogSize; purely a reporting
// convenience, never consulted by the fault-declaration path.
const trendWindow = 12

// Detector logs current power into a Pipeline and runs the monthly
// baseline comparison (REDESIGN FLAG R1: against LastClosedMonth, the slot
// just written, not the stale slot the original off-by-one bug read).
type Detector struct {
	PassReq      uint64
	CapThreshold float64

	monitor  sensor.Monitor
	announce safemode.Announcer
	pipeline *aggregate.Pipeline

	passNum uint64

	mu      sync.Mutex
	history []float64 // recent month averages, for Trend()
}

// New builds a source-decay detector. passReq is ~1 minute of main-loop
// passes; capThreshold is CAP_THRESHOLD (0.8 by default, §6).
func New(monitor sensor.Monitor, announce safemode.Announcer, passReq uint64, capThreshold float64) *Detector {
	d := &Detector{
		PassReq:      passReq,
		CapThreshold: capThreshold,
		monitor:      monitor,
		announce:     announce,
		pipeline:     aggregate.NewPipeline(),
	}
	d.pipeline.OnMonthClosed(func(_ int, avg float64) {
		d.mu.Lock()
		d.history = append(d.history, avg)
		if len(d.history) > trendWindow {
			d.history = d.history[len(d.history)-trendWindow:]
		}
		d.mu.Unlock()
		metrics.SourceDecayTrend.Set(d.Trend())
	})
	return d
}

// Tick runs one main-loop pass (§4.4). Once the fault has latched, further
// passes are a no-op — matching detect_source_decay's "g_source_decay != 1"
// guard: source decay, once declared, stays declared for the mission phase.
func (d *Detector) Tick(bus *core.Bus) {
	if bus.SourceDecay() {
		return
	}

	if d.passNum < d.PassReq {
		d.passNum++
		return
	}
	d.passNum = 0

	raw, err := d.monitor.Power()
	if errors.Is(err, sensor.ErrRead) {
		bus.SetReadError(true)
		return
	}

	d.pipeline.AddMinuteSample(sensor.RawToWatts(raw))

	if d.pipeline.MonthlyCheckPending {
		if d.pipeline.LastClosedMonth() < d.pipeline.BaselineAvg*d.CapThreshold {
			d.handle(bus)
		}
		d.pipeline.MonthlyCheckPending = false
	}
}

func (d *Detector) handle(bus *core.Bus) {
	bus.SetSourceDecay()
	d.announce.Enter(safemode.FaultSourceDecay)
	metrics.FaultsTotal.WithLabelValues(safemode.FaultSourceDecay).Inc()
	metrics.SourceDecayFlag.Set(1)
}

// Trend returns the least-squares slope (watts per closed month) over the
// recent monthly averages. Read-only ground telemetry; never consulted by
// Tick.
func (d *Detector) Trend() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.history) < 2 {
		return 0
	}
	xs := make([]float64, len(d.history))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, d.history, nil, false)
	return slope
}

// Pipeline exposes the underlying aggregate.Pipeline for status reporting.
func (d *Detector) Pipeline() *aggregate.Pipeline { return d.pipeline }

// State is the serializable snapshot of a Detector's internal counters.
type State struct {
	PassNum  uint64
	Pipeline aggregate.State
	History  []float64
}

// Snapshot returns the current detector state for persistence.
func (d *Detector) Snapshot() State {
	d.mu.Lock()
	history := make([]float64, len(d.history))
	copy(history, d.history)
	d.mu.Unlock()
	return State{PassNum: d.passNum, Pipeline: d.pipeline.Snapshot(), History: history}
}

// Restore reinstates a previously persisted state.
func (d *Detector) Restore(s State) {
	d.passNum = s.PassNum
	d.pipeline.Restore(s.Pipeline)
	d.mu.Lock()
	d.history = append([]float64(nil), s.History...)
	d.mu.Unlock()
}
