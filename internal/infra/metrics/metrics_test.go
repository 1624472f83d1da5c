package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestReactionRecordedSplitsByResult(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ReactionRecorded(true, false)
	c.ReactionRecorded(true, true)
	c.ReactionRecorded(false, true)

	if got := testutil.ToFloat64(c.reactions.WithLabelValues("created")); got != 2 {
		t.Fatalf("created reactions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.reactions.WithLabelValues("refreshed")); got != 1 {
		t.Fatalf("refreshed reactions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.mutualReactions); got != 2 {
		t.Fatalf("mutual reactions = %v, want 2", got)
	}
}

func TestSubscriberGaugeTracksAttachAndDrop(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.SubscriberAttached()
	c.SubscriberAttached()
	c.SubscriberDetached(true)

	if got := testutil.ToFloat64(c.subscribersActive); got != 1 {
		t.Fatalf("active subscribers = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.subscribersDropped); got != 1 {
		t.Fatalf("dropped subscribers = %v, want 1", got)
	}
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RoomCreated()
	c.RecordHTTPStatus(http.StatusCreated)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body, _ := io.ReadAll(w.Result().Body)
	for _, name := range []string{"photudio_rooms_created_total 1", `photudio_http_responses_total{status_code="201"} 1`} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("metrics output misses %q:\n%s", name, body)
		}
	}
}
