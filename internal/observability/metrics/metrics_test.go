package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

func scrape(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestHTTPMiddlewareNormalizesPaths(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/artifacts/insights?user_id=u1", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/prompts/p-42/resolve", nil))

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`path="/v1/artifacts/{type}"`,
		`path="/v1/prompts/{prompt_id}/resolve"`,
		`status="418"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in metrics output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "p-42") {
		t.Fatalf("raw prompt id leaked into labels")
	}
}

func TestGenerationMetricsObserve(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	g := m.Generation()

	g.ObserveTrigger(domain.EventDocumentCreated, "cooldown")
	g.StartGeneration()
	g.FinishGeneration(120*time.Millisecond, errors.New("oracle down"))
	g.ObserveCacheLookup(domain.ArtifactInsights, "hit")
	g.ObserveRank(time.Millisecond, 3)

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`memento_scheduler_triggers_total{event="document_created",outcome="cooldown",service="api"} 1`,
		`memento_scheduler_generations_total{service="api",status="error"} 1`,
		`memento_scheduler_generations_in_flight{service="api"} 0`,
		`memento_cache_lookups_total{result="hit",service="api",type="insights"} 1`,
		`memento_ranker_returned_candidates_count{service="api"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in metrics output:\n%s", want, out)
		}
	}
}

func TestWorkerMetrics(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.ObserveConsumed(nil)
	m.ObserveQueueLag(-time.Second)
	m.ObserveStaleReleased(2)
	m.ObserveStaleReleased(0)
	m.SetBreakerState("ollama_generate_insight", 2)
	m.Generation().ObserveTrigger(domain.EventPromptsResolved, "generated")

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`memento_worker_triggers_consumed_total{service="worker",status="success"} 1`,
		`memento_worker_stale_locks_released_total{service="worker"} 2`,
		`memento_worker_circuit_breaker_state{operation="ollama_generate_insight",service="worker"} 2`,
		`memento_worker_queue_lag_seconds_count{service="worker"} 0`,
		`memento_scheduler_triggers_total{event="prompts_resolved",outcome="generated",service="worker"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in metrics output:\n%s", want, out)
		}
	}
}
