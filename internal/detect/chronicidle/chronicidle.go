// Package chronicidle implements the chronic-idle fault detector (§4.2): a
// sliding-window observer over MPPT charge state that distinguishes a
// transient eclipse from a stuck tracker, conditioned on illumination
// evidence read from the power monitor.
package chronicidle

import (
	"errors"

	"spacecraft/epscore/internal/core"
	"spacecraft/epscore/internal/evidence"
	"spacecraft/epscore/internal/metrics"
	"spacecraft/epscore/internal/mppt"
	"spacecraft/epscore/internal/safemode"
	"spacecraft/epscore/internal/sensor"
)

// Detector accumulates idle evidence and drives the reinit/escalate
// handler policy.
type Detector struct {
	PassReq uint64

	DaylightTempLimC  float64
	DaylightVoltLimMV float64

	monitor  sensor.Monitor
	driver   mppt.Driver
	announce safemode.Announcer

	passNum      uint64
	window       evidence.Window
	mpptWasReset bool
}

// New builds a chronic-idle detector. passReq is PASS_REQ (~1 minute of
// main-loop passes); the daylight limits are the illumination thresholds
// from §6 (50°C, 0mV by default, but left configurable since §9 flags the
// voltage limit as tentative).
func New(monitor sensor.Monitor, driver mppt.Driver, announce safemode.Announcer, passReq uint64, daylightTempLimC, daylightVoltLimMV float64) *Detector {
	return &Detector{
		PassReq:           passReq,
		DaylightTempLimC:  daylightTempLimC,
		DaylightVoltLimMV: daylightVoltLimMV,
		monitor:           monitor,
		driver:            driver,
		announce:          announce,
	}
}

// Tick runs one main-loop pass. bus supplies the source-decay-scaled
// cadence divisor (§4.2: PASS_REQ / (source_decay+1)).
func (d *Detector) Tick(bus *core.Bus) {
	threshold := d.PassReq / bus.PassReqDivisor()

	if d.passNum <= threshold {
		d.passNum++
		return
	}

	state, err := d.driver.Status()
	d.passNum = 0

	if err != nil {
		// A status-query failure is not one of the four sensor register
		// errors in §6/§7; treat it as "not observed this pass" rather
		// than as idle evidence, matching the C source's silence on MPPT
		// driver failures (out of scope, §1).
		return
	}

	if state == mppt.ChargingIdle {
		d.window.RecordEvent(true)
		metrics.IdleEvidenceWindow.Set(float64(d.window.Bits()))
		if d.window.Saturated() {
			d.handle(bus)
		}
	} else {
		d.window.RecordEvent(false)
		metrics.IdleEvidenceWindow.Set(0)
		d.mpptWasReset = false
	}
}

// handle implements handle_chronic_idle (§4.2).
func (d *Detector) handle(bus *core.Bus) {
	if !d.mpptWasReset {
		tempRaw, tempErr := d.monitor.Temperature()
		voltRaw, voltErr := d.monitor.BusVoltage()

		if errors.Is(tempErr, sensor.ErrRead) || errors.Is(voltErr, sensor.ErrRead) {
			bus.SetReadError(true)
			return
		}

		tempC := sensor.RawToCelsius(tempRaw)
		voltMV := sensor.RawToMillivolts(voltRaw)

		if tempC >= d.DaylightTempLimC && voltMV >= d.DaylightVoltLimMV {
			d.driver.Reinit()
			d.mpptWasReset = true
			metrics.ChronicIdleReinitTotal.Inc()
		}
		// Not sunlit: the idle is explained by eclipse. Take no action —
		// and, per §4.2's edge cases, do NOT clear the evidence window.
		return
	}

	// A prior reinit did not clear the idle: declare the fault.
	d.announce.Enter(safemode.FaultChronicIdle)
	metrics.FaultsTotal.WithLabelValues(safemode.FaultChronicIdle).Inc()
}

// EvidenceBits exposes the raw window value for status reporting.
func (d *Detector) EvidenceBits() uint8 { return d.window.Bits() }

// MPPTWasReset reports whether a reinit has been issued since the last
// non-idle observation.
func (d *Detector) MPPTWasReset() bool { return d.mpptWasReset }

// State is the serializable snapshot of a Detector's internal counters.
type State struct {
	PassNum      uint64
	WindowBits   uint8
	MPPTWasReset bool
}

// Snapshot returns the current detector state for persistence.
func (d *Detector) Snapshot() State {
	return State{PassNum: d.passNum, WindowBits: d.window.Bits(), MPPTWasReset: d.mpptWasReset}
}

// Restore reinstates a previously persisted state.
func (d *Detector) Restore(s State) {
	d.passNum = s.PassNum
	d.window.Restore(s.WindowBits)
	d.mpptWasReset = s.MPPTWasReset
}
