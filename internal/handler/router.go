package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authHandler "github.com/safeping/relay/backend/internal/handler/auth"
	"github.com/safeping/relay/backend/internal/handler/realtime"
	userHandler "github.com/safeping/relay/backend/internal/handler/user"
	middlewarePkg "github.com/safeping/relay/backend/internal/middleware"
	userModel "github.com/safeping/relay/backend/internal/model/user"
	authService "github.com/safeping/relay/backend/internal/service/auth"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(allowedOrigins []string, users userModel.Store, issuer *authService.Issuer, production bool, realtimeHandler *realtime.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	r.Get("/", handleHealth)

	authHandler.New(issuer, production).RegisterRoutes(r)
	userHandler.New(users, middlewarePkg.RequireToken(issuer)).RegisterRoutes(r)
	realtimeHandler.RegisterRoutes(r)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("safePing server is running"))
}
