package auth

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/safeping/relay/backend/internal/service/auth"
	"github.com/safeping/relay/backend/pkg/utils"
)

// CookieMaxAge bounds the browser lifetime of the token cookie.
const CookieMaxAge = 7 * 24 * time.Hour

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(claims authsvc.Claims) (string, error)
}

// Handler issues and clears the session cookie.
type Handler struct {
	issuer     TokenIssuer
	production bool
}

// New creates the auth handler. production switches the cookie to
// Secure + SameSite=None for cross-site frontends.
func New(issuer TokenIssuer, production bool) *Handler {
	return &Handler{issuer: issuer, production: production}
}

// RegisterRoutes mounts /jwt and /logout.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/jwt", h.handleIssue)
	r.Get("/logout", h.handleLogout)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	claims, err := utils.DecodeObject(w, r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.issuer.Issue(authsvc.Claims(claims))
	if err != nil {
		log.Printf("[auth] issue token failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}

	cookie := h.cookie(token)
	cookie.MaxAge = int(CookieMaxAge / time.Second)
	http.SetCookie(w, cookie)
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	cookie := h.cookie("")
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) cookie(value string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     authsvc.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	if h.production {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	return cookie
}
