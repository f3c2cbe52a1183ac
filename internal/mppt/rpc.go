package mppt

import (
	"spacecraft/epscore/internal/mcubus"
)

// RPCDriver queries and reinitializes the MPPT over a mcubus.Client
// connection to the two-wire-bus bridge.
type RPCDriver struct {
	client *mcubus.Client
}

// NewRPCDriver wraps an already-dialed bus client.
func NewRPCDriver(client *mcubus.Client) *RPCDriver {
	return &RPCDriver{client: client}
}

func (d *RPCDriver) Status() (ChargeState, error) {
	v, err := d.client.Call("mppt_status")
	if err != nil {
		return ChargingUnknown, err
	}
	s, _ := v.(string)
	switch s {
	case "idle":
		return ChargingIdle, nil
	case "active":
		return ChargingActive, nil
	default:
		return ChargingUnknown, nil
	}
}

func (d *RPCDriver) Reinit() {
	// Fire-and-forget: a reinit that never completes is a lower-layer
	// (watchdog) concern, not something this detector retries.
	_, _ = d.client.Call("mppt_reinit")
}
