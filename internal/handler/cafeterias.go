package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/cantina-pos/api/internal/database"
)

// CafeteriaStore defines the database methods needed by cafeteria handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CafeteriaStore interface {
	ListCafeterias(ctx context.Context) ([]database.Cafeteria, error)
	GetCafeteria(ctx context.Context, id int32) (database.Cafeteria, error)
	CreateCafeteria(ctx context.Context, arg database.CreateCafeteriaParams) (database.Cafeteria, error)
	UpdateCafeteria(ctx context.Context, arg database.UpdateCafeteriaParams) (database.Cafeteria, error)
}

// CafeteriaDeleter removes a cafeteria once nothing references it.
// Satisfied by *service.CatalogService.
type CafeteriaDeleter interface {
	DeleteCafeteria(ctx context.Context, id int32) error
}

// CafeteriaHandler handles cafeteria endpoints.
type CafeteriaHandler struct {
	store   CafeteriaStore
	deleter CafeteriaDeleter
}

// NewCafeteriaHandler creates a new CafeteriaHandler.
func NewCafeteriaHandler(store CafeteriaStore, deleter CafeteriaDeleter) *CafeteriaHandler {
	return &CafeteriaHandler{store: store, deleter: deleter}
}

// RegisterRoutes registers the read endpoints. Expected under /cafeterias.
func (h *CafeteriaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers the write endpoints. Expected under /cafeterias
// behind RequireRole(admin).
func (h *CafeteriaHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type cafeteriaRequest struct {
	Name    string  `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

type cafeteriaResponse struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCafeteriaResponse(c database.Cafeteria) cafeteriaResponse {
	return cafeteriaResponse{
		ID:        c.ID,
		Name:      c.Name,
		Address:   textPtr(c.Address),
		Phone:     textPtr(c.Phone),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func decodeCafeteriaRequest(r *http.Request) (cafeteriaRequest, string) {
	var req cafeteriaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, "invalid request body"
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return req, "name is required"
	}
	if len(req.Name) > 100 {
		return req, "name must be at most 100 characters"
	}
	return req, ""
}

// --- Handlers ---

// List returns all cafeterias ordered by name.
func (h *CafeteriaHandler) List(w http.ResponseWriter, r *http.Request) {
	cafeterias, err := h.store.ListCafeterias(r.Context())
	if err != nil {
		writeInternal(w, r, "list cafeterias", err)
		return
	}

	resp := make([]cafeteriaResponse, len(cafeterias))
	for i, c := range cafeterias {
		resp[i] = toCafeteriaResponse(c)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns one cafeteria.
func (h *CafeteriaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid cafeteria ID")
		return
	}

	c, err := h.store.GetCafeteria(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cafeteria not found")
			return
		}
		writeInternal(w, r, "get cafeteria", err)
		return
	}

	writeJSON(w, http.StatusOK, toCafeteriaResponse(c))
}

// Create adds a cafeteria.
func (h *CafeteriaHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, msg := decodeCafeteriaRequest(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.store.CreateCafeteria(r.Context(), database.CreateCafeteriaParams{
		Name:    req.Name,
		Address: optionalText(req.Address),
		Phone:   optionalText(req.Phone),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "cafeteria name already exists")
			return
		}
		writeInternal(w, r, "create cafeteria", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCafeteriaResponse(c))
}

// Update replaces a cafeteria's name, address and phone.
func (h *CafeteriaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid cafeteria ID")
		return
	}

	req, msg := decodeCafeteriaRequest(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.store.UpdateCafeteria(r.Context(), database.UpdateCafeteriaParams{
		ID:      id,
		Name:    req.Name,
		Address: optionalText(req.Address),
		Phone:   optionalText(req.Phone),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cafeteria not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "cafeteria name already exists")
			return
		}
		writeInternal(w, r, "update cafeteria", err)
		return
	}

	writeJSON(w, http.StatusOK, toCafeteriaResponse(c))
}

// Delete removes a cafeteria that has no menus or reservations.
func (h *CafeteriaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid cafeteria ID")
		return
	}

	if err := h.deleter.DeleteCafeteria(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete cafeteria", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "cafeteria deleted"})
}
