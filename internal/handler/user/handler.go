package user

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safeping/relay/backend/internal/model/user"
	"github.com/safeping/relay/backend/pkg/utils"
)

// Handler serves user profile records.
type Handler struct {
	store       user.Store
	requireAuth func(http.Handler) http.Handler
}

// New creates the user handler. requireAuth guards the read-one and patch
// routes.
func New(store user.Store, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{store: store, requireAuth: requireAuth}
}

// RegisterRoutes mounts the /users routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(users chi.Router) {
		users.Get("/", h.handleList)
		users.Put("/{email}", h.handleSave)

		users.Group(func(protected chi.Router) {
			protected.Use(h.requireAuth)
			protected.Get("/{email}", h.handleGet)
			protected.Patch("/{email}", h.handleUpdate)
		})
	})
}

// handleSave creates the profile on first sight and otherwise returns the
// stored one untouched.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	existing, err := h.store.Get(r.Context(), email)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, existing)
		return
	case !errors.Is(err, user.ErrNotFound):
		h.respondStoreError(w, "lookup", err)
		return
	}

	fields, err := utils.DecodeObject(w, r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.store.Upsert(r.Context(), email, user.Profile(fields))
	if err != nil {
		h.respondStoreError(w, "save", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.List(r.Context())
	if err != nil {
		h.respondStoreError(w, "list", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, profiles)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.Get(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.respondStoreError(w, "get", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	fields, err := utils.DecodeObject(w, r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.store.Update(r.Context(), chi.URLParam(r, "email"), user.Profile(fields))
	if err != nil {
		h.respondStoreError(w, "update", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, user.ErrEmailRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[users] %s failed: %v", op, err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
