package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLoggingMiddlewareRecordsStatusAndSize(t *testing.T) {
	buf := captureLog(t)

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/files", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 passed through, got %d", rec.Code)
	}

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Failed to decode log line: %v", err)
	}
	if line["status"] != float64(201) {
		t.Errorf("Expected status 201 in log, got %v", line["status"])
	}
	if line["bytes"] != float64(len("created")) {
		t.Errorf("Expected response size in log, got %v", line["bytes"])
	}
	if line["method"] != "POST" || line["path"] != "/api/v1/files" {
		t.Errorf("Expected method and path in log, got %v %v", line["method"], line["path"])
	}
}

func TestLoggingMiddlewareLevelByStatusClass(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tc := range cases {
		buf := captureLog(t)
		handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

		var line map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("Failed to decode log line: %v", err)
		}
		if line["level"] != tc.level {
			t.Errorf("Status %d: expected level %s, got %v", tc.status, tc.level, line["level"])
		}
	}
}

func TestLoggingMiddlewareDefaultsToOK(t *testing.T) {
	buf := captureLog(t)

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Failed to decode log line: %v", err)
	}
	if line["status"] != float64(200) {
		t.Errorf("Expected implicit 200 in log, got %v", line["status"])
	}
}
