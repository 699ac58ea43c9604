package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordIngestedRows(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	c.RecordIngestedRows(10, 2, 1)
	c.RecordIngestedRows(5, 0, 0)

	if got := testutil.ToFloat64(c.IngestionRowsTotal.WithLabelValues("kept")); got != 15 {
		t.Errorf("kept = %v, want 15", got)
	}
	if got := testutil.ToFloat64(c.IngestionRowsTotal.WithLabelValues("dropped")); got != 2 {
		t.Errorf("dropped = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.IngestionRowsTotal.WithLabelValues("duplicate")); got != 1 {
		t.Errorf("duplicate = %v, want 1", got)
	}
}

func TestCollector_RecordNormalizationDefaults(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	c.RecordNormalizationDefaults(3, 4)

	if got := testutil.ToFloat64(c.NormalizationDefaults.WithLabelValues("electric_range")); got != 3 {
		t.Errorf("electric_range = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.NormalizationDefaults.WithLabelValues("model_year")); got != 4 {
		t.Errorf("model_year = %v, want 4", got)
	}
}

func TestCollector_APIAndDBCounters(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	c.RecordAPIRequest("/api/stats", "GET", "200")
	c.RecordAPIError("bad_request", "/api/stats")
	c.RecordDBError("query_error")
	c.UpdateDBConnectionPool(1, 2, 3)

	if got := testutil.ToFloat64(c.APIRequestsTotal.WithLabelValues("/api/stats", "GET", "200")); got != 1 {
		t.Errorf("api_requests_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.APIErrorsTotal.WithLabelValues("bad_request", "/api/stats")); got != 1 {
		t.Errorf("api_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.DBErrorsTotal.WithLabelValues("query_error")); got != 1 {
		t.Errorf("db_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("total")); got != 3 {
		t.Errorf("db_connection_pool{total} = %v, want 3", got)
	}
}

func TestTimer_ObserveDuration(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	timer := c.NewTimer(c.IngestionDuration)
	time.Sleep(time.Millisecond)
	if d := timer.ObserveDuration(); d <= 0 {
		t.Errorf("ObserveDuration() = %v, want > 0", d)
	}

	if n := testutil.CollectAndCount(c.IngestionDuration); n != 1 {
		t.Errorf("CollectAndCount = %d, want 1", n)
	}

	var nilTimer = c.NewTimer(nil)
	if d := nilTimer.ObserveDuration(); d < 0 {
		t.Errorf("ObserveDuration() = %v", d)
	}
}
