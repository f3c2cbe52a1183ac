package sourcedecay

import (
	"bytes"
	"testing"

	"spacecraft/epscore/internal/core"
	"spacecraft/epscore/internal/safemode"
	"spacecraft/epscore/internal/sensor"
)

func newHarness(t *testing.T, passReq uint64, capThreshold float64) (*Detector, *core.Bus, *sensor.SimMonitor, *bytes.Buffer) {
	t.Helper()
	mon := sensor.NewSimMonitor()
	var buf bytes.Buffer
	ann := safemode.NewWriter(&buf, nil)
	bus := &core.Bus{}
	d := New(mon, ann, passReq, capThreshold)
	return d, bus, mon, &buf
}

// runMonth feeds one full month (30*24*60 minute samples) of constant
// power at watts, advancing the detector's cadence counter each sample.
func runMonth(d *Detector, bus *core.Bus, mon *sensor.SimMonitor, watts int32) {
	mon.SetPower(watts)
	for i := 0; i < 30*24*60; i++ {
		for p := uint64(0); p < d.PassReq+1; p++ {
			d.Tick(bus)
		}
	}
}

func TestFirstMonthCapturesBaselineWithoutFault(t *testing.T) {
	d, bus, mon, buf := newHarness(t, 0, 0.8)

	runMonth(d, bus, mon, 1000) // raw 1000 -> watts via RawToWatts

	if !d.Pipeline().BaselineCaptured {
		t.Fatalf("expected baseline captured after first month")
	}
	if buf.Len() != 0 {
		t.Fatalf("no fault expected on baseline month, got %q", buf.String())
	}
	if bus.SourceDecay() {
		t.Fatalf("source decay must not latch on baseline month")
	}
}

func TestSecondMonthDecayTriggersHandler(t *testing.T) {
	d, bus, mon, buf := newHarness(t, 0, 0.8)

	runMonth(d, bus, mon, 1000)
	runMonth(d, bus, mon, 100) // well under 80% of baseline

	want := "Entering Safety Mode\nFault: source_decay\n"
	if buf.String() != want {
		t.Fatalf("safe-mode output = %q, want %q", buf.String(), want)
	}
	if !bus.SourceDecay() {
		t.Fatalf("expected source-decay flag latched")
	}
	if bus.PassReqDivisor() != 2 {
		t.Fatalf("chronic-idle cadence divisor = %d, want 2 after source decay", bus.PassReqDivisor())
	}
}

func TestSecondMonthSteadyPowerDoesNotFault(t *testing.T) {
	d, bus, mon, buf := newHarness(t, 0, 0.8)

	runMonth(d, bus, mon, 1000)
	runMonth(d, bus, mon, 1000)

	if buf.Len() != 0 {
		t.Fatalf("steady power must not fault, got %q", buf.String())
	}
	if bus.SourceDecay() {
		t.Fatalf("source decay must not latch on steady power")
	}
}

func TestOnceLatchedFurtherTicksAreNoOp(t *testing.T) {
	d, bus, mon, buf := newHarness(t, 0, 0.8)

	runMonth(d, bus, mon, 1000)
	runMonth(d, bus, mon, 100)
	buf.Reset()

	runMonth(d, bus, mon, 1000) // power recovers fully

	if buf.Len() != 0 {
		t.Fatalf("latched fault must not re-fire or re-clear, got %q", buf.String())
	}
	if !bus.SourceDecay() {
		t.Fatalf("source-decay flag must remain latched")
	}
}

func TestReadErrorDuringLogSetsGlobalFlag(t *testing.T) {
	d, bus, mon, _ := newHarness(t, 0, 0.8)
	mon.FailAllOnce()

	for p := uint64(0); p < d.PassReq+1; p++ {
		d.Tick(bus)
	}

	if !bus.ReadError() {
		t.Fatalf("expected global read-error flag set after power read failure")
	}
}

func TestTrendReflectsDecliningMonths(t *testing.T) {
	d, bus, mon, _ := newHarness(t, 0, 0.8)

	runMonth(d, bus, mon, 1000)
	runMonth(d, bus, mon, 800)
	runMonth(d, bus, mon, 600)

	if d.Trend() >= 0 {
		t.Fatalf("Trend() = %v, want a negative slope for declining months", d.Trend())
	}
}
