// Package groundlink serves the read-only HTTP status API a ground
// station polls during a pass: current flag state, recent fault history,
// and a Prometheus metrics endpoint. It never accepts commands — §1 scopes
// telecommand handling out — so every route here is a GET.
package groundlink

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spacecraft/epscore/internal/core"
	"spacecraft/epscore/internal/detect/chronicidle"
	"spacecraft/epscore/internal/detect/pwrmonreaderror"
	"spacecraft/epscore/internal/detect/sourcedecay"
	"spacecraft/epscore/internal/metrics"
	"spacecraft/epscore/internal/safemode"
)

// Detectors bundles read-only accessors the status routes need. Handlers
// never call Tick or otherwise mutate detector state.
type Detectors struct {
	Bus         *core.Bus
	ChronicIdle *chronicidle.Detector
	ReadError   *pwrmonreaderror.Detector
	SourceDecay *sourcedecay.Detector
	History     *safemode.Writer
}

// statusResponse is the /status payload.
type statusResponse struct {
	ReadError          bool      `json:"read_error"`
	SourceDecay        bool      `json:"source_decay"`
	IdleEvidenceBits   uint8     `json:"idle_evidence_bits"`
	MPPTWasReset       bool      `json:"mppt_was_reset"`
	SourceDecayTrendWM float64   `json:"source_decay_trend_watts_per_month"`
	ServerTime         time.Time `json:"server_time"`
}

// faultResponse is one entry in the /faults payload.
type faultResponse struct {
	ID    string    `json:"id"`
	Fault string    `json:"fault"`
	At    time.Time `json:"at"`
}

// NewRouter builds the chi router for the ground-link API, following the
// conventional middleware stack: request ID, real IP, structured request
// logging, panic recovery, then CORS for a ground-side web console.
func NewRouter(d Detectors) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         300,
	}))

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, statusResponse{
			ReadError:          d.Bus.ReadError(),
			SourceDecay:        d.Bus.SourceDecay(),
			IdleEvidenceBits:   d.ChronicIdle.EvidenceBits(),
			MPPTWasReset:       d.ChronicIdle.MPPTWasReset(),
			SourceDecayTrendWM: d.SourceDecay.Trend(),
			ServerTime:         time.Now(),
		})
	})

	r.Get("/faults", func(w http.ResponseWriter, r *http.Request) {
		events := d.History.History()
		out := make([]faultResponse, len(events))
		for i, ev := range events {
			out[i] = faultResponse{ID: ev.ID.String(), Fault: ev.Fault, At: ev.At}
		}
		writeJSON(w, out)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
