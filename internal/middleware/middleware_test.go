package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIdentityRequiresUser(t *testing.T) {
	var seen string
	h := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
	}))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/journey", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"success":false`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/journey", nil)
	req.Header.Set(UserHeader, " user-1 ")
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || seen != "user-1" {
		t.Fatalf("expected user-1 to pass, got code=%d user=%q", resp.Code, seen)
	}

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/journey/live?userId=user-2", nil))
	if seen != "user-2" {
		t.Fatalf("expected query fallback, got %q", seen)
	}
}

func TestCORS(t *testing.T) {
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/journey", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatal("expected origin echoed")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/journey", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign origin, got %d", resp.Code)
	}
}
