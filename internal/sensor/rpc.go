package sensor

import (
	"spacecraft/epscore/internal/mcubus"
)

// RPCMonitor reads the power monitor's registers over a mcubus.Client
// connection to the two-wire-bus bridge. Any transport-level failure
// (socket gone, timeout, malformed response) collapses to the channel's
// ReadError exactly as a failing bus read would, per §7's propagation
// policy: the detector never distinguishes "bus down" from "register
// errored".
type RPCMonitor struct {
	client *mcubus.Client
}

// NewRPCMonitor wraps an already-dialed bus client.
func NewRPCMonitor(client *mcubus.Client) *RPCMonitor {
	return &RPCMonitor{client: client}
}

func (m *RPCMonitor) Temperature() (int16, error) {
	return call16(m.client, "temp", TagTemperatureError)
}

func (m *RPCMonitor) BusVoltage() (int16, error) {
	return call16(m.client, "vbus", TagVoltageError)
}

func (m *RPCMonitor) Current() (int16, error) {
	return call16(m.client, "current", TagCurrentError)
}

func (m *RPCMonitor) Power() (int32, error) {
	v, err := m.client.Call("power")
	if err != nil {
		return 0, &ReadError{Tag: TagPowerError}
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, &ReadError{Tag: TagPowerError}
	}
	return int32(n), nil
}

func call16(client *mcubus.Client, method, tag string) (int16, error) {
	v, err := client.Call(method)
	if err != nil {
		return 0, &ReadError{Tag: tag}
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, &ReadError{Tag: tag}
	}
	return int16(n), nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int8:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
