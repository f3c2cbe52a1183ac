// Package config provides calibration configuration for the EPS
// fault-detection core.
//
// The six named constants from the specification's external-interfaces
// table are compiled-in defaults (Defaults()); an optional YAML file can
// override the tunable subset — cadence and thresholds — the same way the
// original firmware separated "data sheet constant" from "tentative,
// needs calibration" constant. The four sensor error tags are wire
// format, not calibration, and are never overridable.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Calibration holds the tunable constants from §6.
type Calibration struct {
	// PassReq is the number of main-loop passes representing ~1 minute.
	PassReq uint64 `yaml:"pass_req" validate:"required,gt=0"`

	// DaylightTempLimC and DaylightVoltLimMV are the illumination
	// evidence floors used by the chronic-idle handler.
	DaylightTempLimC  float64 `yaml:"daylight_temp_lim_c"`
	DaylightVoltLimMV float64 `yaml:"daylight_volt_lim_mv"`

	// CapThreshold is the fraction of baseline average power below which
	// source decay is declared.
	CapThreshold float64 `yaml:"cap_threshold" validate:"gt=0,lte=1"`

	// ReadErrorPassConstant is the number of PassReq-minutes per day used
	// by the read-error detector's daily probe (1440 = minutes/day).
	ReadErrorPassConstant uint64 `yaml:"read_error_pass_constant" validate:"required,gt=0"`

	// ReadErrorDelayMinutes is how many PassReq-minutes the follow-up
	// probe waits before rechecking (60 = ~1h).
	ReadErrorDelayMinutes uint64 `yaml:"read_error_delay_minutes" validate:"required,gt=0"`
}

// Defaults returns the specification's compiled-in calibration: PASS_REQ
// 7999, DAYLIGHT_TEMP_LIM 50°C, DAYLIGHT_VOLT_LIM 0mV (flagged tentative
// in the original source — kept as-is, not silently tightened),
// CAP_THRESHOLD 0.8, 1440 minutes/day, 60-minute follow-up delay.
func Defaults() Calibration {
	return Calibration{
		PassReq:               7999,
		DaylightTempLimC:      50,
		DaylightVoltLimMV:     0,
		CapThreshold:          0.8,
		ReadErrorPassConstant: 1440,
		ReadErrorDelayMinutes: 60,
	}
}

// ReadErrorDelayPasses returns read_error_delay = PASS_REQ * 60 in ticks.
func (c Calibration) ReadErrorDelayPasses() uint64 {
	return c.PassReq * c.ReadErrorDelayMinutes
}

// DailyProbePasses returns PASS_REQ * 1440 in ticks.
func (c Calibration) DailyProbePasses() uint64 {
	return c.PassReq * c.ReadErrorPassConstant
}

var validate = validator.New()

// Load reads a YAML calibration override file layered on top of Defaults.
// A missing file is not an error — it simply means defaults apply, mirroring
// the original firmware's "empty override file = use default" convention.
func Load(path string) (Calibration, error) {
	cal := Defaults()
	if path == "" {
		return cal, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cal, nil
		}
		return cal, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cal); err != nil {
		return cal, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := validate.Struct(cal); err != nil {
		return cal, fmt.Errorf("config: invalid calibration: %w", err)
	}

	return cal, nil
}

// Runtime holds non-calibration operational settings: where to find the
// bus bridge socket, where to persist detector state, and where to serve
// the ground-link API.
type Runtime struct {
	BusSocketPath   string `yaml:"bus_socket_path"`
	PersistencePath string `yaml:"persistence_path" validate:"required"`
	GroundLinkAddr  string `yaml:"ground_link_addr" validate:"required"`
	LogLevel        string `yaml:"log_level"`
}

// DefaultRuntime returns sensible defaults for local/simulated operation.
func DefaultRuntime() Runtime {
	return Runtime{
		PersistencePath: "eps-state.db",
		GroundLinkAddr:  "127.0.0.1:8080",
		LogLevel:        "info",
	}
}

// LoadRuntime mirrors Load but for Runtime settings.
func LoadRuntime(path string) (Runtime, error) {
	rt := DefaultRuntime()
	if path == "" {
		return rt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rt, nil
		}
		return rt, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rt); err != nil {
		return rt, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := validate.Struct(rt); err != nil {
		return rt, fmt.Errorf("config: invalid runtime config: %w", err)
	}
	return rt, nil
}
