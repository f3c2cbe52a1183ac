// Package aggregate implements the hierarchical minute -> hour -> day ->
// month rolling-average pipeline used by the source-decay detector. Each
// stage is a fixed-capacity accumulator that rolls into the next stage on
// wraparound, per the design notes' "explicit pipeline" guidance.
package aggregate

const (
	minutesPerHour = 60
	hoursPerDay    = 24
	daysPerMonth   = 30
	// MonthsLogSize is the depth of the circular monthly-average log.
	MonthsLogSize = 128
)

// stage is a fixed-capacity sum/position accumulator. When pos reaches cap,
// it emits the average to onClose and resets.
type stage struct {
	sum float64
	pos int
	cap int
}

func (s *stage) add(v float64, onClose func(avg float64)) {
	s.sum += v
	s.pos++
	if s.pos == s.cap {
		avg := s.sum / float64(s.cap)
		s.sum = 0
		s.pos = 0
		onClose(avg)
	}
}

// Pipeline is the minute -> hour -> day -> month chain. Build it with
// NewPipeline: the zero value has no stage capacities and never rolls over.
type Pipeline struct {
	minutes stage
	hours   stage
	days    stage

	// MonthsLog is the circular log of monthly averages. Per the design
	// notes it is effectively write-only after the baseline is captured:
	// only the just-written slot ever participates in the decay check.
	MonthsLog [MonthsLogSize]float64
	MonthsPos int

	// BaselineCaptured and BaselineAvg replace the original's
	// baseline_avg==0 sentinel (REDESIGN FLAG: an honest first-month
	// average of exactly 0W must not be re-captured forever).
	BaselineCaptured bool
	BaselineAvg      float64

	// MonthlyCheckPending mirrors perform_monthly_check.
	MonthlyCheckPending bool

	// onMonthClosed, if set, is invoked with the slot index that was just
	// written whenever a month closes (used for trend tracking).
	onMonthClosed func(slot int, avg float64)
}

// NewPipeline returns a ready-to-use Pipeline.
func NewPipeline() *Pipeline {
	p := &Pipeline{}
	p.minutes.cap = minutesPerHour
	p.hours.cap = hoursPerDay
	p.days.cap = daysPerMonth
	return p
}

// OnMonthClosed registers a callback invoked whenever a monthly average is
// written, after baseline/pending-check bookkeeping. Purely observational —
// nothing in the callback can affect detector semantics.
func (p *Pipeline) OnMonthClosed(fn func(slot int, avg float64)) {
	p.onMonthClosed = fn
}

// AddMinuteSample feeds one power reading (in watts) into the minute stage.
// It cascades the rollups through hour, day, and month as each stage
// fills, exactly mirroring log_current_power's nested thresholds.
func (p *Pipeline) AddMinuteSample(watts float64) {
	p.minutes.add(watts, func(minuteAvg float64) {
		p.hours.add(minuteAvg, func(hourAvg float64) {
			p.days.add(hourAvg, func(dayAvg float64) {
				p.closeMonth(dayAvg)
			})
		})
	})
}

func (p *Pipeline) closeMonth(monthAvg float64) {
	slot := p.MonthsPos
	p.MonthsLog[slot] = monthAvg

	if !p.BaselineCaptured {
		p.BaselineAvg = monthAvg
		p.BaselineCaptured = true
	} else {
		p.MonthlyCheckPending = true
	}

	p.MonthsPos = (p.MonthsPos + 1) % MonthsLogSize

	if p.onMonthClosed != nil {
		p.onMonthClosed(slot, monthAvg)
	}
}

// LastClosedMonth returns the value written by the most recent closeMonth
// call, i.e. MonthsLog[(MonthsPos-1) mod 128]. This is REDESIGN FLAG R1:
// the original source compared against MonthsLog[months_pos] *after*
// months_pos had already advanced, reading the next (stale/zero) slot
// instead of the one just written. Reimplementers are directed to compare
// against this value instead.
func (p *Pipeline) LastClosedMonth() float64 {
	idx := (p.MonthsPos - 1 + MonthsLogSize) % MonthsLogSize
	return p.MonthsLog[idx]
}

// MinutesPos, HoursPos, DaysPos expose stage positions for invariant tests.
func (p *Pipeline) MinutesPos() int { return p.minutes.pos }
func (p *Pipeline) HoursPos() int   { return p.hours.pos }
func (p *Pipeline) DaysPos() int    { return p.days.pos }

// State is the serializable snapshot of a Pipeline, for persistence across
// restarts. Stage sums are included so a restart mid-accumulation does not
// silently drop partial minute/hour/day sums.
type State struct {
	MinutesSum float64
	MinutesPos int
	HoursSum   float64
	HoursPos   int
	DaysSum    float64
	DaysPos    int

	MonthsLog           [MonthsLogSize]float64
	MonthsPos           int
	BaselineCaptured    bool
	BaselineAvg         float64
	MonthlyCheckPending bool
}

// Snapshot returns the current pipeline state for persistence.
func (p *Pipeline) Snapshot() State {
	return State{
		MinutesSum:          p.minutes.sum,
		MinutesPos:          p.minutes.pos,
		HoursSum:            p.hours.sum,
		HoursPos:            p.hours.pos,
		DaysSum:             p.days.sum,
		DaysPos:             p.days.pos,
		MonthsLog:           p.MonthsLog,
		MonthsPos:           p.MonthsPos,
		BaselineCaptured:    p.BaselineCaptured,
		BaselineAvg:         p.BaselineAvg,
		MonthlyCheckPending: p.MonthlyCheckPending,
	}
}

// Restore reinstates a previously persisted state, preserving the stage
// capacities set by NewPipeline.
func (p *Pipeline) Restore(s State) {
	p.minutes.sum, p.minutes.pos = s.MinutesSum, s.MinutesPos
	p.hours.sum, p.hours.pos = s.HoursSum, s.HoursPos
	p.days.sum, p.days.pos = s.DaysSum, s.DaysPos
	p.MonthsLog = s.MonthsLog
	p.MonthsPos = s.MonthsPos
	p.BaselineCaptured = s.BaselineCaptured
	p.BaselineAvg = s.BaselineAvg
	p.MonthlyCheckPending = s.MonthlyCheckPending
}
