package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitCapsPerClient(t *testing.T) {
	handler := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/projects/x/generate", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("203.0.113.1:1000"); rec.Code != http.StatusAccepted {
			t.Fatalf("request %d status = %d, want %d", i+1, rec.Code, http.StatusAccepted)
		}
	}

	rec := do("203.0.113.1:1000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on rejected request")
	}

	// A different client keeps its own window.
	if rec := do("203.0.113.2:1000"); rec.Code != http.StatusAccepted {
		t.Fatalf("other client status = %d, want %d", rec.Code, http.StatusAccepted)
	}
}
