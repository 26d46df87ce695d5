package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/money"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetPopularDishes(ctx context.Context, arg database.GetPopularDishesParams) ([]database.GetPopularDishesRow, error)
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
}

// ReportsHandler handles admin report endpoints.
type ReportsHandler struct {
	store ReportsStore
	now   func() time.Time
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store, now: time.Now}
}

// RegisterRoutes registers report endpoints.
// Expected to be mounted at /reports behind RequireRole(admin).
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/popular-dishes", h.PopularDishes)
	r.Get("/daily-sales", h.DailySales)
}

// --- Response types ---

type popularDishResponse struct {
	DishID       int32  `json:"dish_id"`
	DishName     string `json:"dish_name"`
	QuantitySold int64  `json:"quantity_sold"`
	TotalRevenue string `json:"total_revenue"`
}

type dailySalesResponse struct {
	Date             string `json:"date"`
	ReservationCount int64  `json:"reservation_count"`
	CancelledCount   int64  `json:"cancelled_count"`
	TotalRevenue     string `json:"total_revenue"`
}

// --- Handlers ---

// PopularDishes handles GET /reports/popular-dishes.
// Query params: start_date, end_date (YYYY-MM-DD, inclusive), limit (default 10).
func (h *ReportsHandler) PopularDishes(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := int32(10)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = int32(n)
	}

	rows, err := h.store.GetPopularDishes(r.Context(), database.GetPopularDishesParams{
		StartDate: start,
		EndDate:   end,
		Limit:     limit,
	})
	if err != nil {
		writeInternal(w, r, "popular dishes report", err)
		return
	}

	resp := make([]popularDishResponse, len(rows))
	for i, row := range rows {
		resp[i] = popularDishResponse{
			DishID:       row.DishID,
			DishName:     row.DishName,
			QuantitySold: row.QuantitySold,
			TotalRevenue: money.Format(row.TotalRevenue),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// DailySales handles GET /reports/daily-sales.
// Query params: start_date, end_date, cafeteria_id (optional).
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	arg := database.GetDailySalesParams{StartDate: start, EndDate: end}
	if v := r.URL.Query().Get("cafeteria_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid cafeteria_id")
			return
		}
		arg.CafeteriaID = pgtype.Int4{Int32: int32(n), Valid: true}
	}

	rows, err := h.store.GetDailySales(r.Context(), arg)
	if err != nil {
		writeInternal(w, r, "daily sales report", err)
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		date := ""
		if row.SaleDate.Valid {
			date = row.SaleDate.Time.Format(time.DateOnly)
		}
		resp[i] = dailySalesResponse{
			Date:             date,
			ReservationCount: row.ReservationCount,
			CancelledCount:   row.CancelledCount,
			TotalRevenue:     money.Format(row.TotalRevenue),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// parseDateRange reads start_date and end_date in UTC. The returned end is
// exclusive (midnight after end_date). Defaults to the last 30 days.
func (h *ReportsHandler) parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := h.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	start := today.AddDate(0, 0, -30)
	end := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start_date format")
		}
		start = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end_date format")
		}
		end = t.AddDate(0, 0, 1)
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, errors.New("start_date must not be after end_date")
	}
	return start, end, nil
}
