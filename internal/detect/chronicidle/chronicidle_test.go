package chronicidle

import (
	"bytes"
	"strings"
	"testing"

	"spacecraft/epscore/internal/core"
	"spacecraft/epscore/internal/mppt"
	"spacecraft/epscore/internal/safemode"
	"spacecraft/epscore/internal/sensor"
)

// fire advances the detector straight to its next firing. The cadence
// counter increments while passNum <= threshold, so threshold+2 calls are
// needed to walk from 0 through the firing call (mirrors detect_chronic_idle's
// pass_num <= PASS_REQ/div boundary exactly).
func fire(d *Detector, bus *core.Bus) {
	for i := uint64(0); i < d.PassReq+2; i++ {
		d.Tick(bus)
	}
}

func newHarness(t *testing.T) (*Detector, *core.Bus, *sensor.SimMonitor, *mppt.SimDriver, *bytes.Buffer) {
	t.Helper()
	mon := sensor.NewSimMonitor()
	drv := mppt.NewSimDriver()
	var buf bytes.Buffer
	ann := safemode.NewWriter(&buf, nil)
	bus := &core.Bus{}
	d := New(mon, drv, ann, 3, 50, 0) // small PassReq to keep tests fast
	return d, bus, mon, drv, &buf
}

func TestEclipseIsNotChronicIdle(t *testing.T) {
	d, bus, _, drv, buf := newHarness(t)

	// IDLE x4, CHARGING, IDLE x4
	sequence := []mppt.ChargeState{
		mppt.ChargingIdle, mppt.ChargingIdle, mppt.ChargingIdle, mppt.ChargingIdle,
		mppt.ChargingActive,
		mppt.ChargingIdle, mppt.ChargingIdle, mppt.ChargingIdle, mppt.ChargingIdle,
	}
	for _, s := range sequence {
		drv.SetStates(s)
		fire(d, bus)
		if d.EvidenceBits() == 0xFF {
			t.Fatalf("window saturated during eclipse-interrupted sequence")
		}
	}
	if buf.Len() != 0 {
		t.Fatalf("handler must never be invoked: got output %q", buf.String())
	}
}

func TestChronicIdleSuccessfulReinit(t *testing.T) {
	d, bus, mon, drv, buf := newHarness(t)
	drv.SetStates(mppt.ChargingIdle)

	for i := 0; i < 7; i++ {
		fire(d, bus)
	}
	if d.EvidenceBits() != 0x7F {
		t.Fatalf("bits after 7 idles = %#x, want 0x7f", d.EvidenceBits())
	}

	// 8th firing: sunlit readings present.
	mon.SetTemperature(500) // 500*0.125 = 62.5C
	mon.SetVoltage(100)     // 100*3.125 = 312.5mV
	fire(d, bus)

	if drv.ReinitCall != 1 {
		t.Fatalf("ReinitCall = %d, want 1", drv.ReinitCall)
	}
	if !d.MPPTWasReset() {
		t.Fatalf("expected mppt-reset latch set")
	}
	if buf.Len() != 0 {
		t.Fatalf("no safe-mode entry expected on first reinit, got %q", buf.String())
	}
}

func TestChronicIdleEscalatesAfterFailedReinit(t *testing.T) {
	d, bus, mon, drv, buf := newHarness(t)
	drv.SetStates(mppt.ChargingIdle)
	mon.SetTemperature(500)
	mon.SetVoltage(100)

	for i := 0; i < 8; i++ {
		fire(d, bus)
	}
	buf.Reset() // discard nothing yet, but keep it explicit

	for i := 0; i < 8; i++ {
		fire(d, bus)
	}

	// The window stays saturated, so each of the 8 further firings escalates.
	got := buf.String()
	want := strings.Repeat("Entering Safety Mode\nFault: chronic_idle\n", 8)
	if got != want {
		t.Fatalf("safe-mode output = %q, want %q", got, want)
	}
}

func TestNotSunlitHandlerDoesNotClearEvidence(t *testing.T) {
	d, bus, mon, drv, buf := newHarness(t)
	drv.SetStates(mppt.ChargingIdle)
	mon.SetTemperature(0) // below daylight threshold
	mon.SetVoltage(0)

	for i := 0; i < 8; i++ {
		fire(d, bus)
	}
	if d.EvidenceBits() != 0xFF {
		t.Fatalf("bits = %#x, want 0xff (eclipse must not clear evidence)", d.EvidenceBits())
	}
	if drv.ReinitCall != 0 {
		t.Fatalf("ReinitCall = %d, want 0 (not sunlit)", drv.ReinitCall)
	}
	if buf.Len() != 0 {
		t.Fatalf("no safe-mode entry expected while not sunlit, got %q", buf.String())
	}
}

func TestSensorErrorDuringHandlerSetsReadErrorFlag(t *testing.T) {
	d, bus, mon, drv, _ := newHarness(t)
	drv.SetStates(mppt.ChargingIdle)
	mon.FailTemperatureOnce(0)

	for i := 0; i < 8; i++ {
		fire(d, bus)
	}
	if !bus.ReadError() {
		t.Fatalf("expected global read-error flag set after sensor failure in handler")
	}
	if drv.ReinitCall != 0 {
		t.Fatalf("ReinitCall = %d, want 0 when sensor read failed", drv.ReinitCall)
	}
}
