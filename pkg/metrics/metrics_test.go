package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionCache(true)
	c.RecordSessionCache(true)
	c.RecordSessionCache(false)
	c.RecordMailDispatch("queued")
	c.RecordRateLimited("contacts.create")
	c.RecordAvatarLookup("found")
	c.RecordHTTPRequest("GET", "/api/contacts", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.sessionCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mailDispatch.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rateLimited.WithLabelValues("contacts.create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/contacts", "200")))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRateLimited("contacts.list")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `contacts_rate_limited_total{route="contacts.list"} 1`)
}
