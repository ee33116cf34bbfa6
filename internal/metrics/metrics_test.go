package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTaskOperation(t *testing.T) {
	m := New()

	m.ObserveTaskOperation("create", ResultOK)
	m.ObserveTaskOperation("create", ResultOK)
	m.ObserveTaskOperation("create", ResultInvalid)

	if got := testutil.ToFloat64(m.TaskOperations.WithLabelValues("create", ResultOK)); got != 2 {
		t.Fatalf("expected 2 ok creates, got %v", got)
	}
	if got := testutil.ToFloat64(m.TaskOperations.WithLabelValues("create", ResultInvalid)); got != 1 {
		t.Fatalf("expected 1 invalid create, got %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveTaskOperation("delete", ResultNotFound)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `lazytodo_task_operations_total{operation="delete",result="not_found"} 1`) {
		t.Fatalf("expected task operation counter in output:\n%s", body)
	}
}

func TestNewUsesIndependentRegistries(t *testing.T) {
	first := New()
	second := New()

	first.ObserveTaskOperation("toggle", ResultOK)
	if got := testutil.ToFloat64(second.TaskOperations.WithLabelValues("toggle", ResultOK)); got != 0 {
		t.Fatalf("expected second registry to be untouched, got %v", got)
	}
}
