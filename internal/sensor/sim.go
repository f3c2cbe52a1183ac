package sensor

import "sync"

// SimMonitor is a deterministic, scriptable Monitor for tests and the
// cmd/simulate scenario harness. Each register can be preloaded with a
// sequence of (value, error) pairs; once exhausted, the last entry repeats.
type SimMonitor struct {
	mu sync.Mutex

	tempSeq    []simReading16
	voltSeq    []simReading16
	currentSeq []simReading16
	powerSeq   []simReading32

	tempIdx, voltIdx, currentIdx, powerIdx int
}

type simReading16 struct {
	val int16
	err error
}

type simReading32 struct {
	val int32
	err error
}

// NewSimMonitor returns a monitor that reads 0/no-error on every channel
// until scripted otherwise.
func NewSimMonitor() *SimMonitor {
	return &SimMonitor{}
}

// SetTemperature schedules the next temperature reads. Errors scripted as
// &ReadError{Tag: TagTemperatureError} per convention.
func (m *SimMonitor) SetTemperature(vals ...int16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tempSeq = nil
	for _, v := range vals {
		m.tempSeq = append(m.tempSeq, simReading16{val: v})
	}
	m.tempIdx = 0
}

// FailTemperatureOnce queues a single ERRORT read followed by the given
// value thereafter.
func (m *SimMonitor) FailTemperatureOnce(thenVal int16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tempSeq = []simReading16{
		{err: &ReadError{Tag: TagTemperatureError}},
		{val: thenVal},
	}
	m.tempIdx = 0
}

func (m *SimMonitor) SetVoltage(vals ...int16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voltSeq = nil
	for _, v := range vals {
		m.voltSeq = append(m.voltSeq, simReading16{val: v})
	}
	m.voltIdx = 0
}

func (m *SimMonitor) SetCurrent(vals ...int16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentSeq = nil
	for _, v := range vals {
		m.currentSeq = append(m.currentSeq, simReading16{val: v})
	}
	m.currentIdx = 0
}

func (m *SimMonitor) SetPower(vals ...int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.powerSeq = nil
	for _, v := range vals {
		m.powerSeq = append(m.powerSeq, simReading32{val: v})
	}
	m.powerIdx = 0
}

// FailAllOnce scripts a failing read on every channel. As the only entry of
// each sequence it repeats, so every later read fails too until the channel
// is scripted again.
func (m *SimMonitor) FailAllOnce() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tempSeq = []simReading16{{err: &ReadError{Tag: TagTemperatureError}}}
	m.voltSeq = []simReading16{{err: &ReadError{Tag: TagVoltageError}}}
	m.currentSeq = []simReading16{{err: &ReadError{Tag: TagCurrentError}}}
	m.powerSeq = []simReading32{{err: &ReadError{Tag: TagPowerError}}}
	m.tempIdx, m.voltIdx, m.currentIdx, m.powerIdx = 0, 0, 0, 0
}

func (m *SimMonitor) Temperature() (int16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return next16(m.tempSeq, &m.tempIdx)
}

func (m *SimMonitor) BusVoltage() (int16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return next16(m.voltSeq, &m.voltIdx)
}

func (m *SimMonitor) Current() (int16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return next16(m.currentSeq, &m.currentIdx)
}

func (m *SimMonitor) Power() (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return next32(m.powerSeq, &m.powerIdx)
}

func next16(seq []simReading16, idx *int) (int16, error) {
	if len(seq) == 0 {
		return 0, nil
	}
	r := seq[*idx]
	if *idx < len(seq)-1 {
		*idx++
	}
	return r.val, r.err
}

func next32(seq []simReading32, idx *int) (int32, error) {
	if len(seq) == 0 {
		return 0, nil
	}
	r := seq[*idx]
	if *idx < len(seq)-1 {
		*idx++
	}
	return r.val, r.err
}
