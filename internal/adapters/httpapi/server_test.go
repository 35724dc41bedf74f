package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ghalamif/simtemp/internal/attr"
	"github.com/ghalamif/simtemp/internal/notify"
)

func newTestRouter(t *testing.T) (*gin.Engine, *attr.Store, *notify.Channel) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := attr.NewStore()
	ch := notify.NewChannel()
	h := NewHandler(attr.NewSurface(store, ch, nil), ch, nil)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "simtemp_samples_total 0\n")
	})
	return NewRouter(h, metrics), store, ch
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetAndPutAttribute(t *testing.T) {
	r, store, _ := newTestRouter(t)

	rec := do(r, http.MethodGet, "/attributes/threshold_mc", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "40000\n" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}

	rec = do(r, http.MethodPut, "/attributes/threshold_mc", "35000\n")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.ThresholdMC() != 35000 {
		t.Fatalf("expected threshold 35000, got %d", store.ThresholdMC())
	}

	rec = do(r, http.MethodPut, "/attributes/mode", "ramp")
	if rec.Code != http.StatusNoContent || store.Mode() != 2 {
		t.Fatalf("expected ramp mode, got %d code %d", store.Mode(), rec.Code)
	}
}

func TestPutAttributeErrors(t *testing.T) {
	r, store, _ := newTestRouter(t)

	cases := []struct {
		name, body string
		want       int
	}{
		{"sampling_period_ms", "fast", http.StatusBadRequest},
		{"sampling_period_ms", "0", http.StatusBadRequest},
		{"temp_mc", "1", http.StatusMethodNotAllowed},
		{"timestamp", "now", http.StatusMethodNotAllowed},
		{"humidity", "1", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := do(r, http.MethodPut, "/attributes/"+tc.name, tc.body)
		if rec.Code != tc.want {
			t.Fatalf("PUT %s=%q: expected %d, got %d", tc.name, tc.body, tc.want, rec.Code)
		}
	}
	if store.PeriodMS() != 200 {
		t.Fatalf("rejected writes must keep the prior period, got %d", store.PeriodMS())
	}
}

func TestListAttributes(t *testing.T) {
	r, store, ch := newTestRouter(t)
	store.Publish(41000, time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.Local))
	ch.Publish(true)

	rec := do(r, http.MethodGet, "/attributes", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["temp_mc"] != "41000" || got["flags"] != "3" || got["timestamp"] != "2025-01-02T03:04:05.006" {
		t.Fatalf("unexpected attributes: %v", got)
	}
	if len(got) != 6 {
		t.Fatalf("expected 6 attributes, got %d", len(got))
	}
}

func TestWaitEventsPollAndTimeout(t *testing.T) {
	r, _, ch := newTestRouter(t)

	rec := do(r, http.MethodGet, "/events?timeout=0", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"mask":0`) {
		t.Fatalf("expected empty poll, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(r, http.MethodGet, "/events?mask=1&timeout=20ms", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"mask":0`) {
		t.Fatalf("expected empty mask on timeout, got %d %s", rec.Code, rec.Body.String())
	}

	ch.Publish(false)
	rec = do(r, http.MethodGet, "/events?mask=3&timeout=1s", "")
	if !strings.Contains(rec.Body.String(), `"mask":1`) || !strings.Contains(rec.Body.String(), `"new_sample":true`) {
		t.Fatalf("expected new sample, got %s", rec.Body.String())
	}
	if ch.Flags() != 0 {
		t.Fatalf("expected NEW_SAMPLE consumed, flags %d", ch.Flags())
	}
}

func TestWaitEventsWakesOnPublish(t *testing.T) {
	r, _, ch := newTestRouter(t)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- do(r, http.MethodGet, "/events?mask=2&timeout=2s", "") }()

	time.Sleep(20 * time.Millisecond)
	ch.Publish(true)

	select {
	case rec := <-done:
		if !strings.Contains(rec.Body.String(), `"threshold_alert":true`) {
			t.Fatalf("expected alert, got %s", rec.Body.String())
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter was not woken")
	}
}

func TestWaitEventsRejectsBadQuery(t *testing.T) {
	r, _, _ := newTestRouter(t)
	if rec := do(r, http.MethodGet, "/events?mask=x", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad mask, got %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/events?timeout=soon", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad timeout, got %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r, _, _ := newTestRouter(t)
	if rec := do(r, http.MethodGet, "/healthz", ""); rec.Body.String() != "ok" {
		t.Fatalf("unexpected health body %q", rec.Body.String())
	}
	if rec := do(r, http.MethodGet, "/metrics", ""); !strings.Contains(rec.Body.String(), "simtemp_samples_total") {
		t.Fatalf("metrics handler not wired: %q", rec.Body.String())
	}
}

func TestServerStartShutdown(t *testing.T) {
	r, _, _ := newTestRouter(t)
	s := NewServer("127.0.0.1:0", r, nil)
	addr, err := s.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestServerShutdownReleasesLongPoll(t *testing.T) {
	r, _, _ := newTestRouter(t)
	s := NewServer("127.0.0.1:0", r, nil)
	addr, err := s.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	polled := make(chan struct{})
	go func() {
		defer close(polled)
		resp, err := http.Get("http://" + addr + "/events?mask=2")
		if err == nil {
			resp.Body.Close()
		}
	}()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown with open waiter: %v", err)
	}
	if took := time.Since(start); took > time.Second {
		t.Fatalf("shutdown blocked on long-poll for %s", took)
	}

	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatalf("long-poll client not released")
	}
}
