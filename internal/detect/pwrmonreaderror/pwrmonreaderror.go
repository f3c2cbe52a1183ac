// Package pwrmonreaderror implements the power-monitor read-error
// detector (§4.3): a daily two-strike probe of the four power-monitor
// registers, plus a delayed follow-up probe that clears the global
// read-error flag and rechecks the registers, faulting if the recheck fails.
package pwrmonreaderror

import (
	"errors"

	"spacecraft/epscore/internal/core"
	"spacecraft/epscore/internal/metrics"
	"spacecraft/epscore/internal/safemode"
	"spacecraft/epscore/internal/sensor"
)

// Detector tracks the daily probe cadence and the follow-up delay
// independently, exactly as the original source's two static counters do.
type Detector struct {
	DailyProbePasses uint64 // g_const_PASS_REQ * read_error_pass_constant
	FollowUpDelay    uint64 // g_const_PASS_REQ * 60

	monitor  sensor.Monitor
	announce safemode.Announcer

	dailyPassNum    uint64
	lastTestFailed  bool
	followUpCounter uint64
}

// New builds a read-error detector. dailyProbePasses and followUpDelay are
// tick counts, not wall-clock durations, per the logical-clock design: a
// production caller ticks this once per superloop pass.
func New(monitor sensor.Monitor, announce safemode.Announcer, dailyProbePasses, followUpDelay uint64) *Detector {
	return &Detector{
		DailyProbePasses: dailyProbePasses,
		FollowUpDelay:    followUpDelay,
		monitor:          monitor,
		announce:         announce,
	}
}

// registerCheck reads all four power-monitor registers and reports whether
// any of them returned a read error.
func (d *Detector) registerCheck() bool {
	failed := false
	if _, err := d.monitor.Temperature(); errors.Is(err, sensor.ErrRead) {
		failed = true
	}
	if _, err := d.monitor.BusVoltage(); errors.Is(err, sensor.ErrRead) {
		failed = true
	}
	if _, err := d.monitor.Current(); errors.Is(err, sensor.ErrRead) {
		failed = true
	}
	if _, err := d.monitor.Power(); errors.Is(err, sensor.ErrRead) {
		failed = true
	}
	return failed
}

// followUpRead implements follow_up_read: while the global read-error flag
// is set, count ticks up to FollowUpDelay, then reprobe once and clear the
// flag — reporting a fault only if that single reprobe still fails.
func (d *Detector) followUpRead(bus *core.Bus) bool {
	if !bus.ReadError() {
		return false
	}

	if d.followUpCounter < d.FollowUpDelay {
		d.followUpCounter++
		return false
	}

	d.followUpCounter = 0
	bus.SetReadError(false)

	return d.registerCheck()
}

// dailyRead implements daily_read: once per DailyProbePasses ticks, probe
// the registers; a second consecutive daily failure is the fault.
func (d *Detector) dailyRead() bool {
	if d.dailyPassNum < d.DailyProbePasses {
		d.dailyPassNum++
		return false
	}
	d.dailyPassNum = 0

	if !d.registerCheck() {
		d.lastTestFailed = false
		return false
	}

	if d.lastTestFailed {
		d.lastTestFailed = false
		return true
	}
	d.lastTestFailed = true
	return false
}

// Tick runs one main-loop pass: both probes are evaluated every pass
// (matching detect_pwr_mon_read_error's unconditional double call), and a
// fault from either one enters safe mode.
func (d *Detector) Tick(bus *core.Bus) {
	metrics.ReadErrorFlag.Set(boolToFloat(bus.ReadError()))

	followUpFailed := d.followUpRead(bus)
	dailyFailed := d.dailyRead()

	if followUpFailed || dailyFailed {
		d.announce.Enter(safemode.FaultPwrMonReadError)
		metrics.FaultsTotal.WithLabelValues(safemode.FaultPwrMonReadError).Inc()
	}

	metrics.ReadErrorFlag.Set(boolToFloat(bus.ReadError()))
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// State is the serializable snapshot of a Detector's internal counters.
type State struct {
	DailyPassNum    uint64
	LastTestFailed  bool
	FollowUpCounter uint64
}

// Snapshot returns the current detector state for persistence.
func (d *Detector) Snapshot() State {
	return State{
		DailyPassNum:    d.dailyPassNum,
		LastTestFailed:  d.lastTestFailed,
		FollowUpCounter: d.followUpCounter,
	}
}

// Restore reinstates a previously persisted state.
func (d *Detector) Restore(s State) {
	d.dailyPassNum = s.DailyPassNum
	d.lastTestFailed = s.LastTestFailed
	d.followUpCounter = s.FollowUpCounter
}
