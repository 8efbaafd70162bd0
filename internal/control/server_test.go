package control

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coverdrift/coverdrift/internal/engine"
	"github.com/coverdrift/coverdrift/internal/planner"
	"github.com/coverdrift/coverdrift/internal/stats"
)

type noopProducer struct{}

func (noopProducer) Execute(ctx context.Context, actionTag, topic string) error { return nil }
func (noopProducer) Stats() engine.Stats                                       { return engine.Stats{} }
func (noopProducer) RecentActivity(count int) []engine.ActivityEntry           { return nil }
func (noopProducer) Topics() []string                                         { return nil }

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T, authToken string) (*Server, *httptest.Server) {
	t.Helper()
	reg := engine.NewRegistry(2, testLogger())
	reg.Register("browse", noopProducer{}, true)

	rate := planner.NewRateModel(planner.IntensityMedium, 0.1, rand.New(rand.NewSource(1)))
	counters := stats.NewCounters(time.Now())
	bc := NewBroadcaster(func() stats.Snapshot { return counters.Snapshot(reg, time.Now()) }, time.Hour, testLogger())
	t.Cleanup(bc.Stop)

	srv := NewServer(reg, rate, counters, bc, authToken, nil, testLogger())
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestSetIntensityRejectsUnknownLevel(t *testing.T) {
	_, ts := newTestServer(t, "")
	resp, err := http.Post(ts.URL+"/api/intensity", "application/json", strings.NewReader(`{"level":"extreme"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSetIntensityIdempotentOnSecondCall(t *testing.T) {
	srv, ts := newTestServer(t, "")
	for i := 0; i < 2; i++ {
		resp, err := http.Post(ts.URL+"/api/intensity", "application/json", strings.NewReader(`{"level":"high"}`))
		if err != nil {
			t.Fatalf("POST error = %v", err)
		}
		resp.Body.Close()
	}
	if got := srv.rate.Intensity(); got != planner.IntensityHigh {
		t.Fatalf("Intensity() = %v, want high", got)
	}
}

func TestWritePathRejectsMissingAuthToken(t *testing.T) {
	_, ts := newTestServer(t, "secret")
	resp, err := http.Post(ts.URL+"/api/intensity", "application/json", strings.NewReader(`{"level":"high"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestEngineToggleTwiceReturnsToOriginalState(t *testing.T) {
	srv, ts := newTestServer(t, "")
	for i := 0; i < 2; i++ {
		resp, err := http.Post(ts.URL+"/api/engines/browse/toggle", "application/json", nil)
		if err != nil {
			t.Fatalf("POST error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("toggle %d status = %d, want 200", i, resp.StatusCode)
		}
	}
	if rec := srv.registry.Record("browse"); rec == nil || !rec.Enabled() {
		t.Fatal("browse not enabled after two toggles, want original enabled state")
	}
}

func TestReadEndpointsDoNotRequireAuth(t *testing.T) {
	_, ts := newTestServer(t, "secret")
	for _, path := range []string{"/api/status", "/api/stats", "/api/activity", "/api/engines", "/api/activity-chart"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}
