package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestID(t *testing.T) {
	var seen string
	wrapped := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates request ID when not provided", func(t *testing.T) {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/exports", nil))

		got := w.Header().Get(RequestIDHeader)
		if len(got) < 10 {
			t.Errorf("Request ID seems too short: %q", got)
		}
		if seen != got {
			t.Errorf("context id %q != header id %q", seen, got)
		}
	})

	t.Run("uses provided request ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/exports", nil)
		req.Header.Set(RequestIDHeader, "custom-request-id-12345")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != "custom-request-id-12345" {
			t.Errorf("Request ID = %v", got)
		}
	})

	t.Run("generates unique IDs for different requests", func(t *testing.T) {
		w1, w2 := httptest.NewRecorder(), httptest.NewRecorder()
		wrapped.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/exports", nil))
		wrapped.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/exports", nil))
		if w1.Header().Get(RequestIDHeader) == w2.Header().Get(RequestIDHeader) {
			t.Error("Request IDs should be unique")
		}
	})
}

func TestGetRequestID_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/exports", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("Expected empty string, got %s", id)
	}
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		wrapped := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/exports", nil))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("Status code = %v, want 500", w.Code)
		}
		var body panicResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Error.Type != "server_error" || strings.Contains(body.Error.Message, "test panic") {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("passes through normal requests", func(t *testing.T) {
		wrapped := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("OK"))
		}))
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/exports", nil))

		if w.Code != http.StatusOK || w.Body.String() != "OK" {
			t.Errorf("got %d %q", w.Code, w.Body.String())
		}
	})
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel string
		wantLine  bool
	}{
		{"ok", "/exports", http.StatusAccepted, "INFO", true},
		{"client error", "/exports/x", http.StatusNotFound, "WARN", true},
		{"server error", "/exports", http.StatusInternalServerError, "ERROR", true},
		{"quiet probe", "/health", http.StatusOK, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			wrapped := Logging("/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if GetStartTime(r.Context()).IsZero() {
					t.Error("start time missing from context")
				}
				w.WriteHeader(tt.status)
			}))
			wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			if !tt.wantLine {
				if buf.Len() != 0 {
					t.Errorf("expected no info log, got %s", buf.String())
				}
				return
			}
			var line map[string]any
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("decode log line %q: %v", buf.String(), err)
			}
			if line["level"] != tt.wantLevel || line["msg"] != "request completed" {
				t.Errorf("unexpected log line %v", line)
			}
			if int(line["status"].(float64)) != tt.status {
				t.Errorf("status = %v", line["status"])
			}
		})
	}
}
