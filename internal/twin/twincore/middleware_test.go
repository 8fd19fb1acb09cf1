package twincore

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRequestLogRingBuffer(t *testing.T) {
	rl := NewRequestLog(3)
	for i := 0; i < 5; i++ {
		rl.Add(RequestLogEntry{Path: "/" + string(rune('a'+i))})
	}

	entries := rl.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// oldest entries evicted
	for i, want := range []string{"/c", "/d", "/e"} {
		if entries[i].Path != want {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].Path, want)
		}
	}
}

func TestRequestLogEntriesReturnsCopy(t *testing.T) {
	rl := NewRequestLog(10)
	rl.Add(RequestLogEntry{Path: "/orig"})

	entries := rl.Entries()
	entries[0].Path = "/mutated"

	if rl.Entries()[0].Path != "/orig" {
		t.Error("Entries did not return a copy")
	}
}

func TestFaultRegistry(t *testing.T) {
	fr := NewFaultRegistry()
	fr.Set("/api/login", Fault{StatusCode: 503})

	f, ok := fr.Check(http.MethodPost, "/api/login")
	if !ok || f.StatusCode != 503 {
		t.Fatalf("Check = %+v, %v", f, ok)
	}
	if _, ok := fr.Check(http.MethodPost, "/api/blogs"); ok {
		t.Error("unexpected fault for unregistered path")
	}
	if !fr.Remove("/api/login") {
		t.Error("Remove returned false for a registered path")
	}
	if fr.Remove("/api/login") {
		t.Error("Remove returned true twice")
	}

	fr.Set("/a", Fault{StatusCode: 500})
	fr.Reset()
	if len(fr.All()) != 0 {
		t.Error("Reset left faults behind")
	}
}

func TestFaultRegistryMethodAndTimes(t *testing.T) {
	fr := NewFaultRegistry()
	fr.Set("/api/users", Fault{Method: "post", StatusCode: 500, Times: 2})

	if _, ok := fr.Check(http.MethodGet, "/api/users"); ok {
		t.Error("GET should not match a POST fault")
	}
	for i := 0; i < 2; i++ {
		if _, ok := fr.Check(http.MethodPost, "/api/users"); !ok {
			t.Fatalf("request %d: fault should apply", i)
		}
	}
	if _, ok := fr.Check(http.MethodPost, "/api/users"); ok {
		t.Error("fault should clear itself after Times requests")
	}
	if len(fr.All()) != 0 {
		t.Errorf("faults left: %v", fr.All())
	}
}

func TestRequestLogMatching(t *testing.T) {
	rl := NewRequestLog(10)
	for _, p := range []string{"/api/users", "/", "/api/login", "/admin/health"} {
		rl.Add(RequestLogEntry{Path: p})
	}
	got := rl.Matching("/api/")
	if len(got) != 2 || got[0].Path != "/api/users" || got[1].Path != "/api/login" {
		t.Errorf("Matching = %+v", got)
	}
}

func TestFaultInjectionMiddleware(t *testing.T) {
	mw := NewMiddleware(&Config{Name: "test"}, nil)
	h := mw.FaultInjection(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	mw.Faults.Set("/api/users", Fault{StatusCode: 500, Body: `{"error":"boom"}`})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users", nil))
	if rec.Code != 500 {
		t.Errorf("expected injected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "boom") {
		t.Errorf("expected custom body, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/blogs", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected pass-through, got %d", rec.Code)
	}
}

func TestFaultInjectionDelayOnly(t *testing.T) {
	mw := NewMiddleware(&Config{Name: "test"}, nil)
	h := mw.FaultInjection(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	mw.Faults.Set("/slow", Fault{Delay: 20 * time.Millisecond})

	start := time.Now()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("delay-only fault should pass through, got %d", rec.Code)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("expected the request to be delayed")
	}
}

func TestRandomFailureAlwaysFails(t *testing.T) {
	mw := NewMiddleware(&Config{Name: "test", FailRate: 1.0}, nil)
	h := mw.RandomFailure(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestRequestLogMiddlewareRecordsStatus(t *testing.T) {
	mw := NewMiddleware(&Config{Name: "test"}, nil)
	h := mw.RequestLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/blogs", nil))

	entries := mw.ReqLog.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].StatusCode != http.StatusCreated || entries[0].Method != http.MethodPost {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}
