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
	"github.com/shopspring/decimal"

	"github.com/cantina-pos/api/internal/auth"
	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/enum"
	"github.com/cantina-pos/api/internal/middleware"
	"github.com/cantina-pos/api/internal/money"
	"github.com/cantina-pos/api/internal/pickup"
	"github.com/cantina-pos/api/internal/service"
)

// OrderServicer places and cancels reservations.
// Satisfied by *service.OrderService.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.OrderResult, error)
	CancelOrder(ctx context.Context, reservationID int32) (*service.OrderResult, error)
}

// ReservationStore defines the database reads needed by reservation handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReservationStore interface {
	GetReservation(ctx context.Context, id int32) (database.Reservation, error)
	ListOrderItemsByReservation(ctx context.Context, reservationID int32) ([]database.OrderItem, error)
	ListReservationsByUser(ctx context.Context, arg database.ListReservationsByUserParams) ([]database.Reservation, error)
	GetMonthlyReservationSummary(ctx context.Context, arg database.GetMonthlyReservationSummaryParams) ([]database.GetMonthlyReservationSummaryRow, error)
}

// ReservationHandler handles reservation endpoints for the signed-in user.
type ReservationHandler struct {
	service OrderServicer
	store   ReservationStore
	qr      pickup.QRGenerator
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(svc OrderServicer, store ReservationStore, qr pickup.QRGenerator) *ReservationHandler {
	return &ReservationHandler{service: svc, store: store, qr: qr}
}

// RegisterRoutes registers reservation endpoints on the given Chi router.
// Expected to be mounted at /reservations behind Authenticate. Create is
// left to the caller so it can be rate limited.
func (h *ReservationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/summary", h.Summary)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/cancel", h.Cancel)
	r.Get("/{id}/qr", h.QRCode)
}

// --- Request / Response types ---

type cartItemRequest struct {
	DishID     int32 `json:"dish_id"`
	Quantity   int32 `json:"quantity"`
	IsTakeaway bool  `json:"is_takeaway"`
}

type placeOrderRequest struct {
	CafeteriaID int32             `json:"cafeteria_id"`
	Items       []cartItemRequest `json:"items"`
}

type orderItemResponse struct {
	ID           int32  `json:"id"`
	DishID       int32  `json:"dish_id"`
	Quantity     int32  `json:"quantity"`
	IsTakeaway   bool   `json:"is_takeaway"`
	AppliedPrice string `json:"applied_price"`
}

type reservationResponse struct {
	ID          int32               `json:"id"`
	UserID      int32               `json:"user_id"`
	CafeteriaID int32               `json:"cafeteria_id"`
	Total       string              `json:"total"`
	Status      string              `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []orderItemResponse `json:"items,omitempty"`
}

type placeOrderResponse struct {
	reservationResponse
	NewBalance string `json:"new_balance"`
}

type cancelOrderResponse struct {
	Reservation reservationResponse `json:"reservation"`
	NewBalance  string              `json:"new_balance"`
}

type monthlySummaryResponse struct {
	Month            string `json:"month"`
	ReservationCount int64  `json:"reservation_count"`
	TotalSpent       string `json:"total_spent"`
}

func toReservationResponse(r database.Reservation, items []database.OrderItem) reservationResponse {
	resp := reservationResponse{
		ID:          r.ID,
		UserID:      r.UserID,
		CafeteriaID: r.CafeteriaID,
		Total:       money.Format(r.Total),
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
	if items != nil {
		resp.Items = make([]orderItemResponse, len(items))
		for i, it := range items {
			resp.Items[i] = orderItemResponse{
				ID:           it.ID,
				DishID:       it.DishID,
				Quantity:     it.Quantity,
				IsTakeaway:   it.IsTakeaway,
				AppliedPrice: money.Format(it.AppliedPrice),
			}
		}
	}
	return resp
}

func formatBalance(d decimal.Decimal) string {
	return d.StringFixed(money.Places)
}

// --- Handlers ---

// Create handles POST /reservations.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var cart service.Cart
	for _, it := range req.Items {
		cart.Add(it.DishID, it.Quantity, it.IsTakeaway)
	}

	result, err := h.service.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		UserID:      claims.UserID,
		CafeteriaID: req.CafeteriaID,
		Cart:        cart,
	})
	if err != nil {
		writeServiceError(w, r, "place order", err)
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		reservationResponse: toReservationResponse(result.Reservation, result.Items),
		NewBalance:          formatBalance(result.NewBalance),
	})
}

// Cancel handles PUT /reservations/{id}/cancel. Owners and admins only.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reservation ID")
		return
	}

	if _, ok := h.authorize(w, r, id, true); !ok {
		return
	}

	result, err := h.service.CancelOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, cancelOrderResponse{
		Reservation: toReservationResponse(result.Reservation, result.Items),
		NewBalance:  formatBalance(result.NewBalance),
	})
}

// Get handles GET /reservations/{id}.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reservation ID")
		return
	}

	res, ok := h.authorize(w, r, id, true)
	if !ok {
		return
	}

	items, err := h.store.ListOrderItemsByReservation(r.Context(), id)
	if err != nil {
		writeInternal(w, r, "list order items", err)
		return
	}

	writeJSON(w, http.StatusOK, toReservationResponse(res, items))
}

// List handles GET /reservations for the signed-in user, newest first.
// ?month=YYYY-MM limits the result to one calendar month (UTC).
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset, ok := parsePagination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pagination")
		return
	}

	arg := database.ListReservationsByUserParams{UserID: claims.UserID, Limit: limit, Offset: offset}
	if m := r.URL.Query().Get("month"); m != "" {
		start, err := time.Parse("2006-01", m)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		arg.Since = pgtype.Timestamptz{Time: start, Valid: true}
		arg.Until = pgtype.Timestamptz{Time: start.AddDate(0, 1, 0), Valid: true}
	}

	reservations, err := h.store.ListReservationsByUser(r.Context(), arg)
	if err != nil {
		writeInternal(w, r, "list reservations", err)
		return
	}

	resp := make([]reservationResponse, len(reservations))
	for i, res := range reservations {
		resp[i] = toReservationResponse(res, nil)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Summary handles GET /reservations/summary: reservation count and spend per
// month, cancelled reservations excluded. ?months= caps the rows (default 12).
func (h *ReservationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	months := int32(12)
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 120 {
			writeError(w, http.StatusBadRequest, "months must be between 1 and 120")
			return
		}
		months = int32(n)
	}

	rows, err := h.store.GetMonthlyReservationSummary(r.Context(), database.GetMonthlyReservationSummaryParams{
		UserID: claims.UserID,
		Limit:  months,
	})
	if err != nil {
		writeInternal(w, r, "monthly summary", err)
		return
	}

	resp := make([]monthlySummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = monthlySummaryResponse{
			Month:            row.Month,
			ReservationCount: row.ReservationCount,
			TotalSpent:       money.Format(row.TotalSpent),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// QRCode handles GET /reservations/{id}/qr: a PNG the owner shows at pickup.
func (h *ReservationHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reservation ID")
		return
	}

	res, ok := h.authorize(w, r, id, false)
	if !ok {
		return
	}
	if res.Status == enum.ReservationStatusCancelled {
		writeError(w, http.StatusConflict, "reservation is cancelled")
		return
	}

	png, err := h.qr.Generate(res.ID, res.UserID)
	if err != nil {
		writeInternal(w, r, "generate qr code", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png) //nolint:errcheck
}

// --- Helpers ---

// authorize loads the reservation and checks the caller owns it. Admins pass
// too when allowAdmin is set. On failure the response is already written.
func (h *ReservationHandler) authorize(w http.ResponseWriter, r *http.Request, id int32, allowAdmin bool) (database.Reservation, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return database.Reservation{}, false
	}

	res, err := h.store.GetReservation(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, service.ErrReservationNotFound.Error())
			return database.Reservation{}, false
		}
		writeInternal(w, r, "get reservation", err)
		return database.Reservation{}, false
	}

	if !canAccess(claims, res, allowAdmin) {
		writeError(w, http.StatusForbidden, "not your reservation")
		return database.Reservation{}, false
	}
	return res, true
}

func canAccess(claims *auth.Claims, res database.Reservation, allowAdmin bool) bool {
	if claims.UserID == res.UserID {
		return true
	}
	return allowAdmin && claims.Role == enum.UserRoleAdmin
}
