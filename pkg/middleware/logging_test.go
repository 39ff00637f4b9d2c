package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/storelens/reviewgateway/pkg/logger"
)

func decodeAccessLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out); err != nil {
		t.Fatalf("decode access log %q: %v", buf.String(), err)
	}
	return out
}

func TestRequestLogging_TagsAppIDAndRoute(t *testing.T) {
	var buf bytes.Buffer

	r := chi.NewRouter()
	r.Use(RequestLogging(newTestLogger(&buf)))
	r.Get("/reviews/{appID}", func(w http.ResponseWriter, r *http.Request) {
		_ = logger.WithAppID(r.Context(), chi.URLParam(r, "appID"))
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/reviews/284882215", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Correlation-ID"); got != "corr-1" {
		t.Errorf("X-Correlation-ID = %q, want corr-1", got)
	}

	out := decodeAccessLog(t, &buf)
	if out["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", out["level"])
	}
	if out["app_id"] != "284882215" {
		t.Errorf("app_id = %v, want 284882215", out["app_id"])
	}
	if out["route"] != "/reviews/{appID}" {
		t.Errorf("route = %v, want /reviews/{appID}", out["route"])
	}
	if out["correlation_id"] != "corr-1" {
		t.Errorf("correlation_id = %v, want corr-1", out["correlation_id"])
	}
	if _, ok := out["app_ids"]; ok {
		t.Error("single app request should not log app_ids")
	}
}

func TestRequestLogging_BatchLogsAppIDs(t *testing.T) {
	var buf bytes.Buffer

	r := chi.NewRouter()
	r.Use(RequestLogging(newTestLogger(&buf)))
	r.Post("/reviews/batch", func(w http.ResponseWriter, r *http.Request) {
		_ = logger.WithAppID(r.Context(), "1")
		_ = logger.WithAppID(r.Context(), "2")
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/reviews/batch", nil))

	out := decodeAccessLog(t, &buf)
	ids, ok := out["app_ids"].([]any)
	if !ok || len(ids) != 2 || ids[0] != "1" || ids[1] != "2" {
		t.Errorf("app_ids = %v, want [1 2]", out["app_ids"])
	}
	if _, ok := out["app_id"]; ok {
		t.Error("batch request should not log a single app_id")
	}
}

func TestRequestLogging_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			r := chi.NewRouter()
			r.Use(RequestLogging(newTestLogger(&buf)))
			r.Get("/x", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

			out := decodeAccessLog(t, &buf)
			if out["level"] != tt.level {
				t.Errorf("level = %v, want %s", out["level"], tt.level)
			}
			if int(out["status"].(float64)) != tt.status {
				t.Errorf("status = %v, want %d", out["status"], tt.status)
			}
		})
	}
}

func TestRequestLogging_UnmatchedRouteIsUnknown(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(RequestLogging(newTestLogger(&buf)))
	r.Get("/x", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	out := decodeAccessLog(t, &buf)
	if out["route"] != "unknown" {
		t.Errorf("route = %v, want unknown", out["route"])
	}
	if id, _ := out["correlation_id"].(string); id == "" {
		t.Error("expected generated correlation_id")
	}
}
