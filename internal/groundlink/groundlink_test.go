package groundlink

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"spacecraft/epscore/internal/core"
	"spacecraft/epscore/internal/detect/chronicidle"
	"spacecraft/epscore/internal/detect/pwrmonreaderror"
	"spacecraft/epscore/internal/detect/sourcedecay"
	"spacecraft/epscore/internal/mppt"
	"spacecraft/epscore/internal/safemode"
	"spacecraft/epscore/internal/sensor"
)

func newTestRouter() (http.Handler, *core.Bus, *safemode.Writer) {
	bus := &core.Bus{}
	mon := sensor.NewSimMonitor()
	drv := mppt.NewSimDriver()
	var buf bytes.Buffer
	ann := safemode.NewWriter(&buf, nil)

	ci := chronicidle.New(mon, drv, ann, 10, 50, 0)
	re := pwrmonreaderror.New(mon, ann, 1440, 60)
	sd := sourcedecay.New(mon, ann, 10, 0.8)

	r := NewRouter(Detectors{
		Bus:         bus,
		ChronicIdle: ci,
		ReadError:   re,
		SourceDecay: sd,
		History:     ann,
	})
	return r, bus, ann
}

func TestStatusReportsCurrentFlags(t *testing.T) {
	r, bus, _ := newTestRouter()
	bus.SetReadError(true)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.ReadError {
		t.Fatalf("expected read_error=true in response")
	}
}

func TestFaultsReturnsAnnouncedHistory(t *testing.T) {
	r, _, ann := newTestRouter()
	ann.Enter(safemode.FaultChronicIdle)

	req := httptest.NewRequest(http.MethodGet, "/faults", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var body []faultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body) != 1 || body[0].Fault != safemode.FaultChronicIdle {
		t.Fatalf("faults response = %+v, want one chronic_idle entry", body)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	r, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Content-Type") == "" {
		t.Fatalf("expected a content type on the metrics response")
	}
}
