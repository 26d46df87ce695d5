package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/enum"
	"github.com/cantina-pos/api/internal/money"
	"github.com/cantina-pos/api/internal/service"
)

// DishStore defines the database reads needed by dish handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DishStore interface {
	ListDishes(ctx context.Context, arg database.ListDishesParams) ([]database.Dish, error)
	GetDish(ctx context.Context, id int32) (database.Dish, error)
}

// DishServicer performs dish writes. Satisfied by *service.CatalogService.
type DishServicer interface {
	CreateDish(ctx context.Context, in service.DishInput) (database.Dish, error)
	UpdateDish(ctx context.Context, id int32, in service.DishInput) (database.Dish, error)
	DeleteDish(ctx context.Context, id int32) error
}

// DishHandler handles catalog dish endpoints.
type DishHandler struct {
	store   DishStore
	service DishServicer
}

// NewDishHandler creates a new DishHandler.
func NewDishHandler(store DishStore, svc DishServicer) *DishHandler {
	return &DishHandler{store: store, service: svc}
}

// RegisterRoutes registers the read endpoints.
func (h *DishHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dishes", h.List)
	r.Get("/dish/{id}", h.Get)
}

// RegisterAdminRoutes registers the write endpoints. Expected behind
// RequireRole(admin).
func (h *DishHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/dish", h.Create)
	r.Put("/dish/{id}", h.Update)
	r.Delete("/dish/{id}", h.Delete)
}

// --- Request / Response types ---

type dishRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       amount  `json:"price"`
	Category    *string `json:"category"`
	IsAvailable *bool   `json:"is_available"`
}

type dishResponse struct {
	ID          int32     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       string    `json:"price"`
	Category    string    `json:"category"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toDishResponse(d database.Dish) dishResponse {
	return dishResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: textPtr(d.Description),
		Price:       money.Format(d.Price),
		Category:    d.Category,
		IsAvailable: d.IsAvailable,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// apply overlays the request on in. Fields absent from the request keep
// their value.
func (req dishRequest) apply(in *service.DishInput) {
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Price.Set {
		in.Price = req.Price.Value
	}
	if req.Category != nil {
		in.Category = *req.Category
	}
	if req.IsAvailable != nil {
		in.IsAvailable = *req.IsAvailable
	}
}

// --- Handlers ---

// List returns dishes, optionally filtered by ?category= and ?available=.
func (h *DishHandler) List(w http.ResponseWriter, r *http.Request) {
	var arg database.ListDishesParams

	if c := r.URL.Query().Get("category"); c != "" {
		if !enum.IsValidDishCategory(c) {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		arg.Category = pgtype.Text{String: c, Valid: true}
	}
	if a := r.URL.Query().Get("available"); a != "" {
		v, err := strconv.ParseBool(a)
		if err != nil {
			writeError(w, http.StatusBadRequest, "available must be true or false")
			return
		}
		arg.IsAvailable = pgtype.Bool{Bool: v, Valid: true}
	}

	dishes, err := h.store.ListDishes(r.Context(), arg)
	if err != nil {
		writeInternal(w, r, "list dishes", err)
		return
	}

	resp := make([]dishResponse, len(dishes))
	for i, d := range dishes {
		resp[i] = toDishResponse(d)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns one dish.
func (h *DishHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid dish ID")
		return
	}

	d, err := h.store.GetDish(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "dish not found")
			return
		}
		writeInternal(w, r, "get dish", err)
		return
	}

	writeJSON(w, http.StatusOK, toDishResponse(d))
}

// Create adds a dish. New dishes are available unless stated otherwise.
func (h *DishHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Price.Set {
		writeError(w, http.StatusBadRequest, "price is required")
		return
	}

	in := service.DishInput{IsAvailable: true}
	req.apply(&in)

	d, err := h.service.CreateDish(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, "create dish", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDishResponse(d))
}

// Update changes the fields present in the body.
func (h *DishHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid dish ID")
		return
	}

	var req dishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.store.GetDish(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "dish not found")
			return
		}
		writeInternal(w, r, "get dish", err)
		return
	}

	in := service.DishInput{
		Name:        current.Name,
		Description: current.Description.String,
		Price:       money.FromNumeric(current.Price),
		Category:    current.Category,
		IsAvailable: current.IsAvailable,
	}
	req.apply(&in)

	d, err := h.service.UpdateDish(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, "update dish", err)
		return
	}

	writeJSON(w, http.StatusOK, toDishResponse(d))
}

// Delete removes a dish that no menu or order refers to.
func (h *DishHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid dish ID")
		return
	}

	if err := h.service.DeleteDish(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete dish", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "dish deleted"})
}
