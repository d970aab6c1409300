package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/onauc-backend/pkg/logger"
)

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggingRecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	handler := RequestID(logg)(Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set(requestIDHeader, "req-123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if got := resp.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	var complete map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if entry["message"] == "request.complete" {
			complete = entry
		}
	}
	if complete == nil {
		t.Fatalf("missing request.complete entry in %s", buf.String())
	}
	if complete["status"] != float64(http.StatusTeapot) {
		t.Fatalf("expected status 418 got %v", complete["status"])
	}
	if complete["path"] != "/api/v1/categories" {
		t.Fatalf("unexpected path %v", complete["path"])
	}
}

func TestRecovererReturnsInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestRecovererLogsRouteAndListing(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	router := chi.NewRouter()
	router.Use(Recoverer(logg))
	router.Post("/api/v1/listings/{listingId}/bids", func(w http.ResponseWriter, r *http.Request) {
		panic("bid engine exploded")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/listings/7d6c/bids", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}

	var recovered map[string]any
	for _, entry := range logEntries(t, &buf) {
		if entry["message"] == "panic.recovered" {
			recovered = entry
		}
	}
	if recovered == nil {
		t.Fatalf("missing panic.recovered entry in %s", buf.String())
	}
	if recovered["listing_id"] != "7d6c" {
		t.Fatalf("expected listing id 7d6c, got %v", recovered["listing_id"])
	}
	if recovered["route"] != "/api/v1/listings/{listingId}/bids" {
		t.Fatalf("unexpected route %v", recovered["route"])
	}
	if recovered["method"] != http.MethodPost {
		t.Fatalf("unexpected method %v", recovered["method"])
	}
}

func TestRequestIDReplacesUnsafeClientIDs(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	cases := map[string]bool{
		"req-123":               true,
		"trace.abc:01_x":        true,
		"":                      false,
		"has space":             false,
		"line\nbreak":           false,
		strings.Repeat("a", 65): false,
	}
	for id, keep := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if id != "" {
			req.Header[requestIDHeader] = []string{id}
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)

		echoed := resp.Header().Get(requestIDHeader)
		if echoed != seen {
			t.Fatalf("context id %q differs from header %q", seen, echoed)
		}
		if keep && echoed != id {
			t.Fatalf("expected %q kept, got %q", id, echoed)
		}
		if !keep && (echoed == id || !validRequestID(echoed)) {
			t.Fatalf("expected %q replaced, got %q", id, echoed)
		}
	}
}
