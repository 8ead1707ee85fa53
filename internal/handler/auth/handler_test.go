package auth

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/safeping/relay/backend/internal/service/auth"
)

func setupRouter(t *testing.T, production bool) (*chi.Mux, *authsvc.Issuer) {
	t.Helper()
	issuer, err := authsvc.NewIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer err: %v", err)
	}
	r := chi.NewRouter()
	New(issuer, production).RegisterRoutes(r)
	return r, issuer
}

func findCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == authsvc.CookieName {
			return c
		}
	}
	return nil
}

func TestIssueSetsVerifiableCookie(t *testing.T) {
	r, issuer := setupRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/jwt", bytes.NewReader([]byte(`{"email":"ada@example.com"}`)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	cookie := findCookie(rr.Result())
	if cookie == nil {
		t.Fatal("expected token cookie")
	}
	if !cookie.HttpOnly || cookie.Secure || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected development cookie flags: %+v", cookie)
	}
	if cookie.MaxAge != int(CookieMaxAge/time.Second) {
		t.Fatalf("unexpected max age: %d", cookie.MaxAge)
	}

	claims, err := issuer.Verify(cookie.Value)
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if claims.Email() != "ada@example.com" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestIssueProductionCookieFlags(t *testing.T) {
	r, _ := setupRouter(t, true)

	req := httptest.NewRequest(http.MethodPost, "/jwt", bytes.NewReader([]byte(`{"email":"ada@example.com"}`)))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	cookie := findCookie(rr.Result())
	if cookie == nil || !cookie.Secure || cookie.SameSite != http.SameSiteNoneMode {
		t.Fatalf("unexpected production cookie: %+v", cookie)
	}
}

func TestIssueRejectsInvalidBody(t *testing.T) {
	r, _ := setupRouter(t, false)

	for _, body := range []string{"", "[1,2]", "null", "{"} {
		req := httptest.NewRequest(http.MethodPost, "/jwt", bytes.NewReader([]byte(body)))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	r, _ := setupRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	cookie := findCookie(rr.Result())
	if cookie == nil || cookie.MaxAge >= 0 || cookie.Value != "" {
		t.Fatalf("expected expired cookie, got %+v", cookie)
	}
}
