package monitor

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveReading(t *testing.T) {
	valid := testutil.ToFloat64(Readings.WithLabelValues("true"))
	invalid := testutil.ToFloat64(Readings.WithLabelValues("false"))

	ObserveReading(true, 0)
	ObserveReading(false, 2)
	ObserveReading(false, 1)

	assert.Equal(t, valid+1, testutil.ToFloat64(Readings.WithLabelValues("true")))
	assert.Equal(t, invalid+2, testutil.ToFloat64(Readings.WithLabelValues("false")))
}

func TestHandlerServesCollectors(t *testing.T) {
	Register()
	Register()
	Resyncs.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "dmm_resyncs_total"))
}
