package server

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"gocv.io/x/gocv"

	"github.com/ayusman/attention/internal/metrics"
	"github.com/ayusman/attention/internal/skeleton"
	"github.com/ayusman/attention/internal/store"
)

type fakeTracking bool

func (f fakeTracking) IsEnabled() bool { return bool(f) }

type fakeEvents struct {
	events []*store.GestureEvent
	err    error
	limit  int
}

func (f *fakeEvents) List(limit int) ([]*store.GestureEvent, error) {
	f.limit = limit
	return f.events, f.err
}

func TestServer_Liveness(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rec.Body.String() != LivenessText {
		t.Errorf("expected body %q, got %q", LivenessText, rec.Body.String())
	}
}

func TestServer_Health(t *testing.T) {
	s := New(Config{Tracking: fakeTracking(true)})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
		if response["clients"] != float64(0) {
			t.Errorf("expected 0 clients, got %v", response["clients"])
		}
		if response["tracking"] != true {
			t.Errorf("expected tracking true, got %v", response["tracking"])
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/nonexistent", "/api/events", "/api/stream", "/metrics", "/app/index.html"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_Events(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := &fakeEvents{events: []*store.GestureEvent{
		{ID: 2, Name: "kick_event", Data: json.RawMessage(`{"leg":"left"}`), BodyID: 3, CreatedAt: created},
		{ID: 1, Name: "hand_event", Data: json.RawMessage(`{"side":"right"}`), BodyID: 3, CreatedAt: created},
	}}
	s := New(Config{Events: events})

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
	}{
		{"default limit", "", http.StatusOK, DefaultEventLimit},
		{"explicit limit", "?limit=5", http.StatusOK, 5},
		{"limit capped", "?limit=100000", http.StatusOK, MaxEventLimit},
		{"zero limit", "?limit=0", http.StatusBadRequest, 0},
		{"garbage limit", "?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events.limit = 0
			req := httptest.NewRequest(http.MethodGet, "/api/events"+tt.query, nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if events.limit != tt.wantLimit {
				t.Errorf("List limit = %d, want %d", events.limit, tt.wantLimit)
			}
		})
	}

	t.Run("encodes events", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		var got []struct {
			ID     int64           `json:"id"`
			Name   string          `json:"name"`
			Data   json.RawMessage `json:"data"`
			BodyID uint32          `json:"body_id"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		if got[0].Name != "kick_event" || string(got[0].Data) != `{"leg":"left"}` || got[0].BodyID != 3 {
			t.Errorf("unexpected first event: %+v", got[0])
		}
	})

	t.Run("store failure", func(t *testing.T) {
		failing := New(Config{Events: &fakeEvents{err: errors.New("disk gone")}})
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		rec := httptest.NewRecorder()
		failing.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
		}
	})
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>Hello, World!</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves files under /app/", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/app/index.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK && rec.Code != http.StatusMovedPermanently {
			t.Errorf("unexpected status %d", rec.Code)
		}
	})

	t.Run("root stays the liveness text", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Body.String() != LivenessText {
			t.Errorf("expected body %q, got %q", LivenessText, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/app/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_Metrics(t *testing.T) {
	m := metrics.New(metrics.WithNamespace("attention"))
	s := New(Config{Metrics: m})

	s.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	want := `attention_http_requests_total{endpoint="health",method="GET",status="200"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics output missing %q", want)
	}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name string
		v    r3.Vector
		w, h int
		want image.Point
	}{
		{"origin is centre", r3.Vector{}, 640, 440, image.Pt(320, 220)},
		{"down and right", r3.Vector{X: 1100, Y: 1100, Z: 2000}, 640, 440, image.Pt(540, 440)},
		{"up and left", r3.Vector{X: -550, Y: -550}, 640, 440, image.Pt(210, 110)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Project(tt.v, tt.w, tt.h); got != tt.want {
				t.Errorf("Project() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDrawSkeleton(t *testing.T) {
	frame := gocv.NewMatWithSize(440, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	// nil draws nothing
	DrawSkeleton(&frame, nil)
	if px := frame.GetVecbAt(220, 320); px[0] != 0 || px[1] != 0 || px[2] != 0 {
		t.Fatal("nil snapshot should leave the frame untouched")
	}

	snap := &skeleton.Snapshot{BodyID: 1}
	DrawSkeleton(&frame, snap)

	// Every joint sits at the origin, which projects to the centre.
	px := frame.GetVecbAt(220, 320)
	if px[0] == 0 && px[1] == 0 && px[2] == 0 {
		t.Error("expected a joint drawn at the frame centre")
	}
}
