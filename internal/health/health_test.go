package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	t.Run("always returns 200", func(t *testing.T) {
		h := New()
		rec := httptest.NewRecorder()
		h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if body := decode(t, rec); body.Status != "ok" {
			t.Errorf("status = %q, want ok", body.Status)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("reports the version when set", func(t *testing.T) {
		h := New()
		h.Version = "1.2.3"
		rec := httptest.NewRecorder()
		h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

		if body := decode(t, rec); body.Version != "1.2.3" {
			t.Errorf("version = %q", body.Version)
		}
	})
}

func TestReadyz(t *testing.T) {
	pass := func(_ context.Context) error { return nil }

	t.Run("all checkers pass", func(t *testing.T) {
		h := New(
			Checker{Name: "postgres", Check: pass},
			Checker{Name: "history", Check: pass},
		)
		rec := httptest.NewRecorder()
		h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		body := decode(t, rec)
		if body.Status != "ok" || body.Checks["postgres"] != "ok" || body.Checks["history"] != "ok" {
			t.Errorf("body = %+v", body)
		}
	})

	t.Run("one failing checker fails the probe", func(t *testing.T) {
		h := New(
			Checker{Name: "postgres", Check: func(_ context.Context) error {
				return errors.New("connection refused")
			}},
			Checker{Name: "history", Check: pass},
		)
		rec := httptest.NewRecorder()
		h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
		body := decode(t, rec)
		if body.Status != "fail" {
			t.Errorf("status = %q, want fail", body.Status)
		}
		if body.Checks["postgres"] != "fail: connection refused" {
			t.Errorf("postgres check = %q", body.Checks["postgres"])
		}
		if body.Checks["history"] != "ok" {
			t.Errorf("history check = %q", body.Checks["history"])
		}
	})

	t.Run("no checkers is ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		New().Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("checkers see request cancellation", func(t *testing.T) {
		h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := httptest.NewRecorder()
		h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	New(Checker{Name: "noop", Check: func(_ context.Context) error { return nil }}).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
		})
	}
}
