// Command epsfaultd runs the EPS fault-detection core: a single-threaded
// superloop that ticks the three detectors once per pass, persists state
// periodically, and serves the ground-link status API in the background.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spacecraft/epscore/config"
	"spacecraft/epscore/internal/core"
	"spacecraft/epscore/internal/detect/chronicidle"
	"spacecraft/epscore/internal/detect/pwrmonreaderror"
	"spacecraft/epscore/internal/detect/sourcedecay"
	"spacecraft/epscore/internal/groundlink"
	"spacecraft/epscore/internal/mcubus"
	"spacecraft/epscore/internal/mppt"
	"spacecraft/epscore/internal/persistence"
	"spacecraft/epscore/internal/safemode"
	"spacecraft/epscore/internal/sensor"
	"spacecraft/epscore/internal/telemetry"
	"spacecraft/epscore/version"

	"github.com/rs/zerolog"
)

// persistEvery is how many ticks elapse between state snapshots. A tick is
// the logical clock unit, not a wall-clock duration (§9), so this is a tick
// count rather than a time.Duration.
const persistEvery = 4000

func main() {
	runtimeConfigPath := flag.String("runtime-config", "", "path to runtime YAML config (optional)")
	calibrationPath := flag.String("calibration", "", "path to calibration YAML override (optional)")
	flag.Parse()

	rt, err := config.LoadRuntime(*runtimeConfigPath)
	if err != nil {
		println("epsfaultd: runtime config:", err.Error())
		os.Exit(1)
	}
	cal, err := config.Load(*calibrationPath)
	if err != nil {
		println("epsfaultd: calibration config:", err.Error())
		os.Exit(1)
	}

	if err := telemetry.Init(rt.LogLevel, os.Stdout); err != nil {
		telemetry.Get().Warn().Err(err).Msg("epsfaultd:log-level-fallback")
	}
	log := telemetry.Get()

	log.Info().
		Str("version", version.Version).
		Str("sha", version.GitSHA).
		Str("built", version.BuildDate).
		Msg("epsfaultd:starting")

	store, err := persistence.Open(rt.PersistencePath)
	if err != nil {
		log.Fatal().Err(err).Msg("epsfaultd:persistence-open-failed")
	}
	defer store.Close()

	client, err := mcubus.NewClient(rt.BusSocketPath, *log)
	var monitor sensor.Monitor
	var driver mppt.Driver
	if err != nil {
		log.Warn().Err(err).Msg("epsfaultd:bus-unavailable-using-simulator")
		monitor = sensor.NewSimMonitor()
		driver = mppt.NewSimDriver()
	} else {
		monitor = sensor.NewRPCMonitor(client)
		driver = mppt.NewRPCDriver(client)
	}

	announce := safemode.NewWriter(os.Stdout, nil)
	bus := &core.Bus{}

	ci := chronicidle.New(monitor, driver, announce, cal.PassReq, cal.DaylightTempLimC, cal.DaylightVoltLimMV)
	re := pwrmonreaderror.New(monitor, announce, cal.DailyProbePasses(), cal.ReadErrorDelayPasses())
	sd := sourcedecay.New(monitor, announce, cal.PassReq, cal.CapThreshold)

	if saved, ok, err := store.Load(); err != nil {
		log.Warn().Err(err).Msg("epsfaultd:state-load-failed-starting-cold")
	} else if ok {
		bus.SetReadError(saved.ReadError)
		if saved.SourceDecay {
			bus.SetSourceDecay()
		}
		ci.Restore(saved.ChronicIdle)
		re.Restore(saved.PwrMonReadError)
		sd.Restore(saved.SourceDecayDet)
		log.Info().Time("saved_at", saved.SavedAt).Msg("epsfaultd:state-restored")
	}

	router := groundlink.NewRouter(groundlink.Detectors{
		Bus: bus, ChronicIdle: ci, ReadError: re, SourceDecay: sd, History: announce,
	})
	server := &http.Server{Addr: rt.GroundLinkAddr, Handler: router}
	go func() {
		log.Info().Str("addr", rt.GroundLinkAddr).Msg("epsfaultd:groundlink-serving")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("epsfaultd:groundlink-failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var tickCount uint64
	for {
		select {
		case <-sigCh:
			log.Info().Msg("epsfaultd:shutdown-signal")
			snapshot(store, bus, ci, re, sd, log)
			return
		default:
		}

		ci.Tick(bus)
		re.Tick(bus)
		sd.Tick(bus)

		tickCount++
		if tickCount%persistEvery == 0 {
			snapshot(store, bus, ci, re, sd, log)
		}

		// A tick IS the logical clock unit; production wiring paces the
		// superloop against real time so it approximates "one pass per
		// telemetry sample period" without detector logic ever consulting
		// a wall clock itself.
		time.Sleep(time.Millisecond)
	}
}

func snapshot(store *persistence.Store, bus *core.Bus, ci *chronicidle.Detector, re *pwrmonreaderror.Detector, sd *sourcedecay.Detector, log *zerolog.Logger) {
	st := persistence.State{
		ReadError:       bus.ReadError(),
		SourceDecay:     bus.SourceDecay(),
		ChronicIdle:     ci.Snapshot(),
		PwrMonReadError: re.Snapshot(),
		SourceDecayDet:  sd.Snapshot(),
	}
	if err := store.Save(st); err != nil {
		log.Error().Err(err).Msg("epsfaultd:state-save-failed")
	}
}
