package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/rating-pulse/internal/config"
	"github.com/Clark-Hu/rating-pulse/internal/repository"
	"github.com/Clark-Hu/rating-pulse/internal/stream"
)

// newUnitServer builds a server whose repository has no pool; only request
// paths that fail before touching the store may be exercised.
func newUnitServer(t testing.TB) *Server {
	t.Helper()
	cfg := config.Config{Port: "0", StreamHeartbeatSecs: 15, CORSAllowOrigin: "*"}
	srv := New(cfg, nil, repository.NewWithPool(nil), stream.NewHub(), log.New(io.Discard, "", 0))
	// Replace chi router to avoid default middleware noise.
	srv.router = chi.NewRouter()
	srv.registerRoutes()
	return srv
}

func TestHandleRate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{"empty body", ``, http.StatusUnprocessableEntity, "Request body cannot be empty"},
		{"malformed json", `{"value":`, http.StatusBadRequest, "Unable to parse request body"},
		{"syntax error", `{"value" 3}`, http.StatusUnprocessableEntity, "Malformed JSON payload"},
		{"missing value", `{}`, http.StatusUnprocessableEntity, "value is required"},
		{"fractional", `{"value":3.5}`, http.StatusUnprocessableEntity, "Invalid value for field value"},
		{"string", `{"value":"4"}`, http.StatusUnprocessableEntity, "Invalid value for field value"},
		{"too low", `{"value":0}`, http.StatusUnprocessableEntity, "value must be an integer between 1 and 5"},
		{"too high", `{"value":6}`, http.StatusUnprocessableEntity, "value must be an integer between 1 and 5"},
		{"unknown field", `{"value":3,"rater":"x"}`, http.StatusBadRequest, "Unable to parse request body"},
	}

	srv := newUnitServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/rate", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			srv.handleRate(rec, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Message != tt.wantMsg {
				t.Fatalf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
		})
	}
}

func TestRoutesRejectWrongMethods(t *testing.T) {
	srv := newUnitServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/rate"},
		{http.MethodPut, "/api/ratings"},
		{http.MethodPost, "/api/stream"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s status = %d, want 405", tc.method, tc.path, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newUnitServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("ratings_stream_subscribers_active")) {
		t.Fatalf("metrics output missing stream gauge")
	}
}

func FuzzHandleRate(f *testing.F) {
	for _, seed := range []string{`{"value":3}`, `{"value":-1}`, `{}`, `[]`, `null`, ``} {
		f.Add(seed)
	}
	srv := newUnitServer(f)

	f.Fuzz(func(t *testing.T, body string) {
		var probe rateRequest
		dec := json.NewDecoder(bytes.NewBufferString(body))
		dec.DisallowUnknownFields()
		// Bodies that would reach the store are out of scope without a database.
		if dec.Decode(&probe) == nil && probe.Value != nil && *probe.Value >= 1 && *probe.Value <= 5 {
			return
		}
		req := httptest.NewRequest(http.MethodPost, "/api/rate", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		srv.handleRate(rec, req)
		if rec.Code == http.StatusOK || rec.Code >= http.StatusInternalServerError {
			t.Fatalf("body %q got status %d", body, rec.Code)
		}
	})
}
