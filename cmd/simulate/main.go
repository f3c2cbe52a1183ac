// Command simulate drives the three fault detectors against scripted
// sensor/MPPT scenarios, for exercising the detection logic without real
// hardware. In fast-forward mode (the default) it advances the logical
// clock as quickly as possible; in -realtime mode a cron schedule paces
// one tick per second.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"spacecraft/epscore/config"
	"spacecraft/epscore/internal/core"
	"spacecraft/epscore/internal/detect/chronicidle"
	"spacecraft/epscore/internal/detect/pwrmonreaderror"
	"spacecraft/epscore/internal/detect/sourcedecay"
	"spacecraft/epscore/internal/mppt"
	"spacecraft/epscore/internal/safemode"
	"spacecraft/epscore/internal/sensor"
)

// scenario describes one scripted fault walkthrough. ticks is sized for
// config.Defaults(): chronic-idle samples the MPPT every PassReq+2 = 8001
// ticks, and the daily read probe runs every PassReq*1440+1 = 11518561 ticks.
type scenario struct {
	name        string
	description string
	ticks       int
	setup       func(mon *sensor.SimMonitor, drv *mppt.SimDriver)
}

var scenarios = map[string]scenario{
	"eclipse": {
		name:        "eclipse",
		description: "repeated MPPT idle interrupted by active charging; must never fault",
		ticks:       9 * 8001,
		setup: func(mon *sensor.SimMonitor, drv *mppt.SimDriver) {
			drv.SetStates(mppt.ChargingIdle, mppt.ChargingIdle, mppt.ChargingIdle, mppt.ChargingActive)
		},
	},
	"chronic-idle": {
		name:        "chronic-idle",
		description: "sustained MPPT idle in daylight; reinit then escalate to safe mode",
		ticks:       9 * 8001, // reinit on the 8th sample, escalate on the 9th
		setup: func(mon *sensor.SimMonitor, drv *mppt.SimDriver) {
			drv.SetStates(mppt.ChargingIdle)
			mon.SetTemperature(500)
			mon.SetVoltage(100)
		},
	},
	"read-error": {
		name:        "read-error",
		description: "two consecutive daily register-read failures",
		ticks:       2 * 11518561,
		setup: func(mon *sensor.SimMonitor, drv *mppt.SimDriver) {
			mon.FailAllOnce()
		},
	},
}

func main() {
	scenarioName := flag.String("scenario", "eclipse", "scenario to run: eclipse, chronic-idle, read-error")
	realtime := flag.Bool("realtime", false, "pace ticks one-per-second via cron instead of fast-forwarding")
	flag.Parse()

	sc, ok := scenarios[*scenarioName]
	if !ok {
		fmt.Fprintf(os.Stderr, "simulate: unknown scenario %q\n", *scenarioName)
		os.Exit(1)
	}

	cal := config.Defaults()
	mon := sensor.NewSimMonitor()
	drv := mppt.NewSimDriver()
	announce := safemode.NewWriter(os.Stdout, nil)
	bus := &core.Bus{}

	ci := chronicidle.New(mon, drv, announce, cal.PassReq, cal.DaylightTempLimC, cal.DaylightVoltLimMV)
	re := pwrmonreaderror.New(mon, announce, cal.DailyProbePasses(), cal.ReadErrorDelayPasses())
	sd := sourcedecay.New(mon, announce, cal.PassReq, cal.CapThreshold)

	sc.setup(mon, drv)

	fmt.Printf("simulate: running %q (%s)\n", sc.name, sc.description)

	tick := func() {
		ci.Tick(bus)
		re.Tick(bus)
		sd.Tick(bus)
	}

	if !*realtime {
		for i := 0; i < sc.ticks; i++ {
			tick()
		}
		report(bus, ci)
		return
	}

	c := cron.New(cron.WithSeconds())
	done := make(chan struct{})
	ticked := 0
	if _, err := c.AddFunc("* * * * * *", func() {
		tick()
		ticked++
		if ticked >= sc.ticks {
			close(done)
		}
	}); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: schedule: %v\n", err)
		os.Exit(1)
	}
	c.Start()
	<-done
	c.Stop()
	time.Sleep(50 * time.Millisecond) // let the final cron invocation settle
	report(bus, ci)
}

func report(bus *core.Bus, ci *chronicidle.Detector) {
	snap := bus.Snapshot()
	fmt.Printf("simulate: final state: read_error=%v source_decay=%v idle_evidence=%#x\n",
		snap.ReadError, snap.SourceDecay, ci.EvidenceBits())
}
