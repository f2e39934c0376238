package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")
}

func TestStatsUpdater_IncrDecr(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux())
	su.RegisterMetric(NumActiveRooms)
	su.RegisterMetric(NumActiveRooms)
	su.Run()
	defer su.Stop()

	su.Incr(NumActiveRooms)
	su.Incr(NumActiveRooms)
	su.Decr(NumActiveRooms)
	// unknown metrics are ignored
	su.Incr("Unregistered")

	assert.Eventually(t, func() bool {
		metric, ok := su.vars.Get(NumActiveRooms).(*expvar.Int)
		return ok && metric.Value() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStatsUpdater_Handler(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	su.RegisterMetric(NumActiveClients)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body, "Uptime")
	assert.Contains(t, body, NumActiveClients)
}

func TestStatsUpdater_UpdateAfterStop(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux())
	su.RegisterMetric(NumActiveClients)
	su.Run()
	su.Stop()
	su.Stop()

	// must not block or panic
	for i := 0; i < 1024; i++ {
		su.Decr(NumActiveClients)
	}
}
