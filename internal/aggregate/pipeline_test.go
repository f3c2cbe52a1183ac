package aggregate

import "testing"

func TestPositionsStayInBounds(t *testing.T) {
	p := NewPipeline()
	for i := 0; i < 60*24*30*3; i++ {
		p.AddMinuteSample(float64(i % 7))
		if p.MinutesPos() < 0 || p.MinutesPos() >= 60 {
			t.Fatalf("minutes pos out of range: %d", p.MinutesPos())
		}
		if p.HoursPos() < 0 || p.HoursPos() >= 24 {
			t.Fatalf("hours pos out of range: %d", p.HoursPos())
		}
		if p.DaysPos() < 0 || p.DaysPos() >= 30 {
			t.Fatalf("days pos out of range: %d", p.DaysPos())
		}
		if p.MonthsPos < 0 || p.MonthsPos >= MonthsLogSize {
			t.Fatalf("months pos out of range: %d", p.MonthsPos)
		}
	}
}

func TestFirstMonthConstantPowerIsExact(t *testing.T) {
	p := NewPipeline()
	const watts = 10.0
	minutesInMonth := 60 * 24 * 30
	for i := 0; i < minutesInMonth; i++ {
		p.AddMinuteSample(watts)
	}
	if !p.BaselineCaptured {
		t.Fatalf("expected baseline captured after first month")
	}
	if p.BaselineAvg != watts {
		t.Fatalf("baseline = %v, want %v", p.BaselineAvg, watts)
	}
	if got := p.LastClosedMonth(); got != watts {
		t.Fatalf("LastClosedMonth() = %v, want %v", got, watts)
	}
}

func TestZeroWattFirstMonthCapturedOnce(t *testing.T) {
	p := NewPipeline()
	minutesInMonth := 60 * 24 * 30
	for i := 0; i < minutesInMonth; i++ {
		p.AddMinuteSample(0)
	}
	if !p.BaselineCaptured {
		t.Fatalf("a genuine 0W first month must still be captured as baseline")
	}
	if p.BaselineAvg != 0 {
		t.Fatalf("baseline = %v, want 0", p.BaselineAvg)
	}

	// Second month: nonzero average must be compared, not re-captured.
	for i := 0; i < minutesInMonth; i++ {
		p.AddMinuteSample(5)
	}
	if p.BaselineAvg != 0 {
		t.Fatalf("baseline was re-captured: %v", p.BaselineAvg)
	}
	if !p.MonthlyCheckPending {
		t.Fatalf("expected monthly check pending after second month")
	}
}

func TestSecondMonthDecayIsDetectableAtLastClosedSlot(t *testing.T) {
	p := NewPipeline()
	minutesInMonth := 60 * 24 * 30
	for i := 0; i < minutesInMonth; i++ {
		p.AddMinuteSample(10)
	}
	p.MonthlyCheckPending = false // baseline month, nothing pending yet

	for i := 0; i < minutesInMonth; i++ {
		p.AddMinuteSample(7)
	}
	if !p.MonthlyCheckPending {
		t.Fatalf("expected pending check after second month closes")
	}
	if got := p.LastClosedMonth(); got != 7 {
		t.Fatalf("LastClosedMonth() = %v, want 7", got)
	}
	if got := p.BaselineAvg * 0.8; got != 8 {
		t.Fatalf("sanity: baseline*0.8 = %v, want 8", got)
	}
}
