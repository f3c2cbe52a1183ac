// Package sensor models the power-monitor interface consumed by the fault
// detectors: four synchronous register reads (temperature, bus voltage,
// current, power) plus the pure unit-conversion functions from the
// instrument's data sheet.
package sensor

import "errors"

// ErrRead is the collapsed error returned at the core boundary for any
// register read failure, regardless of which channel failed or what its
// wire-level tag was. Detectors never branch on the tag itself — only on
// whether a read errored — per the spec's error-propagation policy.
var ErrRead = errors.New("sensor: register read error")

// Tag values are the exact textual status markers the underlying two-wire
// bus driver returns. Preserved verbatim for wire compatibility with the
// existing C driver; Go callers see them via ReadError.Tag.
const (
	TagTemperatureError = "ERRORT\r\n"
	TagVoltageError     = "ERRORV\r\n"
	TagCurrentError     = "ERRORC\r\n"
	TagPowerError       = "ERRORP\r\n"
)

// ReadError wraps ErrRead with the channel-specific wire tag, for
// diagnostics/logging. Detectors compare against ErrRead via errors.Is.
type ReadError struct {
	Tag string
}

func (e *ReadError) Error() string { return "sensor: " + e.Tag }
func (e *ReadError) Unwrap() error { return ErrRead }

// Monitor is the consumed sensor interface (§6). Raw values are the
// instrument's native 16-bit (temp/voltage) or 32-bit (power) register
// contents; conversion to physical units is the caller's job via the
// RawTo* functions below.
type Monitor interface {
	Temperature() (raw int16, err error)
	BusVoltage() (raw int16, err error)
	Current() (raw int16, err error)
	Power() (raw int32, err error)
}

// Data-sheet calibration constants (§6).
const (
	TempConvertFactor = 0.125 // °C per LSB
	VoltConvertFactor = 3.125 // mV per LSB

	// MaximumExpectedCurrent yields CURRENT_LSB = MaximumExpectedCurrent / 32768.
	MaximumExpectedCurrent = 32768
	currentLSB             = float64(MaximumExpectedCurrent) / 32768
	powerConvertFactor     = 0.2 // hardware-specified factor in watts-per-(LSB*CURRENT_LSB)
)

// RawToCelsius converts a raw 16-bit signed temperature register to °C.
func RawToCelsius(raw int16) float64 {
	return float64(raw) * TempConvertFactor
}

// RawToMillivolts converts a raw 16-bit signed voltage register to mV.
func RawToMillivolts(raw int16) float64 {
	return float64(raw) * VoltConvertFactor
}

// RawToWatts converts a raw 32-bit signed power register to watts.
func RawToWatts(raw int32) float64 {
	return powerConvertFactor * currentLSB * float64(raw)
}
