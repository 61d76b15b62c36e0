package overlay

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type handlerFixture struct {
	router *chi.Mux
	timers *ManualTimers
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	timers := NewManualTimers()
	svc := NewService(NewInMemorySessionRepository(), Options{Timers: timers})
	t.Cleanup(svc.Close)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	r := chi.NewRouter()
	NewHandler(svc, log, nil).Routes(r)
	return &handlerFixture{router: r, timers: timers}
}

func (f *handlerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) createSession(t *testing.T) string {
	t.Helper()
	rec := f.do(http.MethodPost, "/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d", rec.Code)
	}
	var resp createSessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.SessionID == "" {
		t.Fatalf("create session: bad body %q: %v", rec.Body.String(), err)
	}
	return "/sessions/" + string(resp.SessionID)
}

func TestHandler_CreateSession(t *testing.T) {
	f := newHandlerFixture(t)

	t.Run("with_viewport", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/sessions", `{"width":1280,"height":720}`)
		if rec.Code != http.StatusCreated {
			t.Errorf("expected 201, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %s", ct)
		}
	})

	t.Run("bad_body", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/sessions", "not json")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandler_ingest_and_tick(t *testing.T) {
	f := newHandlerFixture(t)
	base := f.createSession(t)

	rec := f.do(http.MethodPost, base+"/comments", sampleWire)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest: expected 200, got %d", rec.Code)
	}
	var res IngestResult
	_ = json.NewDecoder(rec.Body).Decode(&res)
	if res.Accepted != 2 || res.Dropped != 1 {
		t.Errorf("unexpected ingest result: %+v", res)
	}

	rec = f.do(http.MethodPost, base+"/tick", `{"current_time":10.05}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("tick: expected 200, got %d", rec.Code)
	}
	var acts []activationView
	if err := json.NewDecoder(rec.Body).Decode(&acts); err != nil {
		t.Fatalf("tick: decode: %v", err)
	}
	if len(acts) != 1 || acts[0].Comment.ID != "xyz" || acts[0].ExpiresAfter != 10 {
		t.Errorf("unexpected activations: %+v", acts)
	}

	rec = f.do(http.MethodPost, base+"/tick", `{"current_time":10.2}`)
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestHandler_manual_ingest(t *testing.T) {
	f := newHandlerFixture(t)
	base := f.createSession(t)

	rec := f.do(http.MethodPost, base+"/comments/manual", "3,5,255,hi\nbroken\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res IngestResult
	_ = json.NewDecoder(rec.Body).Decode(&res)
	if res.Accepted != 1 || res.Dropped != 1 {
		t.Errorf("unexpected result: %+v", res)
	}

	rec = f.do(http.MethodGet, base+"/comments", "")
	var comments []CommentStatus
	_ = json.NewDecoder(rec.Body).Decode(&comments)
	if len(comments) != 1 || comments[0].Mode != ModeTopFixed || comments[0].State != StatePending {
		t.Errorf("unexpected comments: %+v", comments)
	}
}

func TestHandler_seek_and_events(t *testing.T) {
	f := newHandlerFixture(t)
	base := f.createSession(t)
	f.do(http.MethodPost, base+"/comments", sampleWire)
	f.do(http.MethodPost, base+"/tick", `{"current_time":10}`)

	rec := f.do(http.MethodPost, base+"/seek", `{"time":3}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("seek: expected 204, got %d", rec.Code)
	}
	if f.timers.Pending() != 0 {
		t.Errorf("seek should cancel expirations, %d pending", f.timers.Pending())
	}

	rec = f.do(http.MethodGet, base+"/events", "")
	var events []eventView
	_ = json.NewDecoder(rec.Body).Decode(&events)
	if len(events) != 2 || events[0].Kind != EventActivate || events[1].Kind != EventDeactivateAll {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[0].Activate == nil || events[0].Activate.ExpiresAfter != 10 {
		t.Errorf("activate payload missing: %+v", events[0])
	}

	rec = f.do(http.MethodGet, base+"/events?after=1", "")
	events = nil
	_ = json.NewDecoder(rec.Body).Decode(&events)
	if len(events) != 1 || events[0].Seq != 2 {
		t.Errorf("unexpected filtered events: %+v", events)
	}

	if rec := f.do(http.MethodGet, base+"/events?after=x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad cursor, got %d", rec.Code)
	}
}

func TestHandler_expiry_visible_in_events(t *testing.T) {
	f := newHandlerFixture(t)
	base := f.createSession(t)
	f.do(http.MethodPost, base+"/comments/manual", "1,4,255,bottom")
	f.do(http.MethodPost, base+"/tick", `{"current_time":1}`)

	f.timers.Advance(3 * time.Second)
	rec := f.do(http.MethodGet, base+"/events?after=1", "")
	var events []eventView
	_ = json.NewDecoder(rec.Body).Decode(&events)
	if len(events) != 1 || events[0].Kind != EventDeactivate {
		t.Errorf("expected a deactivate event, got %+v", events)
	}
}

func TestHandler_bad_requests(t *testing.T) {
	f := newHandlerFixture(t)
	base := f.createSession(t)

	tests := []struct {
		name, method, path, body string
	}{
		{"tick_not_json", http.MethodPost, "/tick", "nope"},
		{"tick_missing_time", http.MethodPost, "/tick", `{}`},
		{"tick_negative", http.MethodPost, "/tick", `{"current_time":-1}`},
		{"seek_missing_time", http.MethodPost, "/seek", `{"at":1}`},
		{"viewport_negative", http.MethodPut, "/viewport", `{"width":-1,"height":10}`},
		{"enabled_not_json", http.MethodPut, "/enabled", "yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, base+tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_not_found(t *testing.T) {
	f := newHandlerFixture(t)
	base := "/sessions/missing"

	tests := []struct {
		name, method, path, body string
	}{
		{"ingest", http.MethodPost, "/comments", sampleWire},
		{"tick", http.MethodPost, "/tick", `{"current_time":1}`},
		{"seek", http.MethodPost, "/seek", `{"time":1}`},
		{"viewport", http.MethodPut, "/viewport", `{"width":1,"height":1}`},
		{"enabled", http.MethodPut, "/enabled", `{"enabled":true}`},
		{"events", http.MethodGet, "/events", ""},
		{"comments", http.MethodGet, "/comments", ""},
		{"clear", http.MethodDelete, "/comments", ""},
		{"end", http.MethodDelete, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, base+tt.path, tt.body)
			if rec.Code != http.StatusNotFound {
				t.Errorf("expected 404, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_enabled_viewport_clear_end(t *testing.T) {
	f := newHandlerFixture(t)
	base := f.createSession(t)
	f.do(http.MethodPost, base+"/comments", sampleWire)

	if rec := f.do(http.MethodPut, base+"/enabled", `{"enabled":false}`); rec.Code != http.StatusNoContent {
		t.Fatalf("enabled: expected 204, got %d", rec.Code)
	}
	rec := f.do(http.MethodPost, base+"/tick", `{"current_time":10}`)
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("disabled tick should activate nothing, got %s", body)
	}

	if rec := f.do(http.MethodPut, base+"/viewport", `{"width":640,"height":360}`); rec.Code != http.StatusNoContent {
		t.Errorf("viewport: expected 204, got %d", rec.Code)
	}

	if rec := f.do(http.MethodDelete, base+"/comments", ""); rec.Code != http.StatusNoContent {
		t.Errorf("clear: expected 204, got %d", rec.Code)
	}
	rec = f.do(http.MethodGet, base+"/comments", "")
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected no comments, got %s", body)
	}

	if rec := f.do(http.MethodDelete, base, ""); rec.Code != http.StatusNoContent {
		t.Errorf("end: expected 204, got %d", rec.Code)
	}
	if rec := f.do(http.MethodDelete, base, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second end: expected 404, got %d", rec.Code)
	}
}

func TestHandler_ingest_too_large(t *testing.T) {
	f := newHandlerFixture(t)
	base := f.createSession(t)

	body := bytes.Repeat([]byte("1,1,1,x\n"), maxIngestBytes/8+1)
	req := httptest.NewRequest(http.MethodPost, base+"/comments/manual", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestHandler_manual_ingest_long_line(t *testing.T) {
	f := newHandlerFixture(t)
	base := f.createSession(t)

	body := "1,1,255,first\n2,1,255," + strings.Repeat("x", 70*1024) + "\n3,1,255,last\n"
	rec := f.do(http.MethodPost, base+"/comments/manual", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res IngestResult
	_ = json.NewDecoder(rec.Body).Decode(&res)
	if res.Accepted != 3 || res.Dropped != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}
