package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/safeping/relay/backend/internal/middleware"
	"github.com/safeping/relay/backend/internal/model/user"
	authsvc "github.com/safeping/relay/backend/internal/service/auth"
)

func setupRouter(t *testing.T, seed ...user.Profile) (*chi.Mux, *user.MemoryStore, *http.Cookie) {
	t.Helper()
	issuer, err := authsvc.NewIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer err: %v", err)
	}
	token, err := issuer.Issue(authsvc.Claims{"email": "ada@example.com"})
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}

	store := user.NewMemoryStore(seed...)
	r := chi.NewRouter()
	New(store, middleware.RequireToken(issuer)).RegisterRoutes(r)
	return r, store, &http.Cookie{Name: authsvc.CookieName, Value: token}
}

func do(r http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestSaveCreatesMissingUser(t *testing.T) {
	r, store, _ := setupRouter(t)

	rr := do(r, http.MethodPut, "/users/ada@example.com", `{"name":"Ada","role":"user"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var result user.WriteResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if result.UpsertedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, err := store.Get(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got["name"] != "Ada" {
		t.Fatalf("unexpected profile: %v", got)
	}
}

func TestSaveReturnsExistingUserUnchanged(t *testing.T) {
	r, store, _ := setupRouter(t, user.Profile{"email": "ada@example.com", "name": "Ada"})

	rr := do(r, http.MethodPut, "/users/ada@example.com", `{"name":"Someone else"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body["name"] != "Ada" {
		t.Fatalf("expected existing record, got %v", body)
	}

	got, _ := store.Get(context.Background(), "ada@example.com")
	if got["name"] != "Ada" {
		t.Fatalf("existing record must not change, got %v", got)
	}
}

func TestListUsers(t *testing.T) {
	r, _, _ := setupRouter(t,
		user.Profile{"email": "bob@example.com"},
		user.Profile{"email": "ada@example.com"},
	)

	rr := do(r, http.MethodGet, "/users", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var profiles []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&profiles); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(profiles) != 2 || profiles[0]["email"] != "ada@example.com" {
		t.Fatalf("unexpected profiles: %v", profiles)
	}
}

func TestGetUserRequiresToken(t *testing.T) {
	r, _, _ := setupRouter(t, user.Profile{"email": "ada@example.com"})

	rr := do(r, http.MethodGet, "/users/ada@example.com", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestGetUser(t *testing.T) {
	r, _, cookie := setupRouter(t, user.Profile{"email": "ada@example.com", "name": "Ada"})

	rr := do(r, http.MethodGet, "/users/ada@example.com", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = do(r, http.MethodGet, "/users/ghost@example.com", "", cookie)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body["message"] != "User not found" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestPatchUserMerges(t *testing.T) {
	r, store, cookie := setupRouter(t, user.Profile{"email": "ada@example.com", "name": "Ada"})

	rr := do(r, http.MethodPatch, "/users/ada@example.com", `{"phone":"555"}`, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var result user.WriteResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if result.MatchedCount != 1 || result.ModifiedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, _ := store.Get(context.Background(), "ada@example.com")
	if got["name"] != "Ada" || got["phone"] != "555" {
		t.Fatalf("unexpected profile: %v", got)
	}
}

func TestPatchUserRequiresToken(t *testing.T) {
	r, _, _ := setupRouter(t, user.Profile{"email": "ada@example.com"})

	rr := do(r, http.MethodPatch, "/users/ada@example.com", `{"phone":"555"}`, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestPatchRejectsInvalidBody(t *testing.T) {
	r, _, cookie := setupRouter(t, user.Profile{"email": "ada@example.com"})

	rr := do(r, http.MethodPatch, "/users/ada@example.com", `not json`, cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
