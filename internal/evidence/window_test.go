package evidence

import "testing"

func TestWindowNeverSaturatesWithoutIdle(t *testing.T) {
	var w Window
	for i := 0; i < 100; i++ {
		w.RecordEvent(false)
		if w.Saturated() {
			t.Fatalf("window saturated after %d non-idle observations", i+1)
		}
	}
}

func TestWindowSaturatesAfterEightConsecutive(t *testing.T) {
	var w Window
	for i := 1; i <= 8; i++ {
		w.RecordEvent(true)
		want := uint8((1 << uint(i)) - 1)
		if i == 8 {
			want = 0xFF
		}
		if w.Bits() != want {
			t.Fatalf("after %d idles, bits = %#x, want %#x", i, w.Bits(), want)
		}
	}
	if !w.Saturated() {
		t.Fatalf("expected saturation after 8 consecutive idles")
	}
}

func TestWindowResetsOnNonIdle(t *testing.T) {
	var w Window
	for i := 0; i < 4; i++ {
		w.RecordEvent(true)
	}
	w.RecordEvent(false)
	if w.Bits() != 0 {
		t.Fatalf("bits = %#x after non-idle, want 0", w.Bits())
	}

	for i := 0; i < 4; i++ {
		w.RecordEvent(true)
	}
	if w.Saturated() {
		t.Fatalf("eclipse-interrupted idle run must not saturate the window")
	}
}

func TestWindowEclipseScenario(t *testing.T) {
	// IDLE x4, CHARGING, IDLE x4: must never saturate.
	var w Window
	seq := []bool{true, true, true, true, false, true, true, true, true}
	for _, idle := range seq {
		w.RecordEvent(idle)
		if w.Saturated() {
			t.Fatalf("window saturated mid-eclipse-interrupted sequence")
		}
	}
}
