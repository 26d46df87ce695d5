package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/enum"
	"github.com/cantina-pos/api/internal/handler"
	"github.com/cantina-pos/api/internal/middleware"
	"github.com/cantina-pos/api/internal/money"
)

// --- Mock Store ---

type mockReportsStore struct {
	popular    []database.GetPopularDishesRow
	daily      []database.GetDailySalesRow
	err        error
	popularArg database.GetPopularDishesParams
	dailyArg   database.GetDailySalesParams
}

func (m *mockReportsStore) GetPopularDishes(_ context.Context, arg database.GetPopularDishesParams) ([]database.GetPopularDishesRow, error) {
	m.popularArg = arg
	if m.err != nil {
		return nil, m.err
	}
	return m.popular, nil
}

func (m *mockReportsStore) GetDailySales(_ context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error) {
	m.dailyArg = arg
	if m.err != nil {
		return nil, m.err
	}
	return m.daily, nil
}

func setupReportsRouter(store *mockReportsStore) *chi.Mux {
	h := handler.NewReportsHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		h.RegisterRoutes(r)
	})
	return r
}

// --- Tests ---

func TestPopularDishes(t *testing.T) {
	store := &mockReportsStore{popular: []database.GetPopularDishesRow{
		{DishID: 3, DishName: "Lentil soup", QuantitySold: 42, TotalRevenue: money.ToNumeric(money.MustParse("147.00"))},
		{DishID: 7, DishName: "Paella", QuantitySold: 10, TotalRevenue: money.ToNumeric(money.MustParse("72.50"))},
	}}
	router := setupReportsRouter(store)

	rr := doAuthRequest(t, router, "GET", "/reports/popular-dishes?start_date=2026-03-01&end_date=2026-03-31&limit=5", nil, adminClaims)
	expectStatus(t, rr, http.StatusOK)

	list := decodeList(t, rr)
	if len(list) != 2 {
		t.Fatalf("len: got %d, want 2", len(list))
	}
	if list[0]["dish_name"] != "Lentil soup" || list[0]["quantity_sold"] != float64(42) || list[0]["total_revenue"] != "147.00" {
		t.Errorf("first row: got %v", list[0])
	}

	if !store.popularArg.StartDate.Equal(day("2026-03-01")) {
		t.Errorf("start: got %v", store.popularArg.StartDate)
	}
	if !store.popularArg.EndDate.Equal(day("2026-04-01")) {
		t.Errorf("end should be exclusive day after end_date, got %v", store.popularArg.EndDate)
	}
	if store.popularArg.Limit != 5 {
		t.Errorf("limit: got %d, want 5", store.popularArg.Limit)
	}
}

func TestPopularDishes_Defaults(t *testing.T) {
	store := &mockReportsStore{}
	router := setupReportsRouter(store)

	rr := doAuthRequest(t, router, "GET", "/reports/popular-dishes", nil, adminClaims)
	expectStatus(t, rr, http.StatusOK)

	if list := decodeList(t, rr); len(list) != 0 {
		t.Errorf("expected empty list, got %v", list)
	}
	if store.popularArg.Limit != 10 {
		t.Errorf("limit: got %d, want 10", store.popularArg.Limit)
	}
	if span := store.popularArg.EndDate.Sub(store.popularArg.StartDate); span != 31*24*time.Hour {
		t.Errorf("default span: got %v", span)
	}
}

func TestPopularDishes_BadParams(t *testing.T) {
	paths := []string{
		"/reports/popular-dishes?start_date=03-01-2026",
		"/reports/popular-dishes?end_date=yesterday",
		"/reports/popular-dishes?start_date=2026-04-02&end_date=2026-04-01",
		"/reports/popular-dishes?limit=0",
		"/reports/popular-dishes?limit=500",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			rr := doAuthRequest(t, setupReportsRouter(&mockReportsStore{}), "GET", p, nil, adminClaims)
			expectStatus(t, rr, http.StatusBadRequest)
		})
	}
}

func TestDailySales(t *testing.T) {
	store := &mockReportsStore{daily: []database.GetDailySalesRow{
		{
			SaleDate:         pgtype.Date{Time: day("2026-03-02"), Valid: true},
			ReservationCount: 12,
			CancelledCount:   1,
			TotalRevenue:     money.ToNumeric(money.MustParse("88.40")),
		},
	}}
	router := setupReportsRouter(store)

	rr := doAuthRequest(t, router, "GET", "/reports/daily-sales?start_date=2026-03-01&end_date=2026-03-07&cafeteria_id=4", nil, adminClaims)
	expectStatus(t, rr, http.StatusOK)

	list := decodeList(t, rr)
	if len(list) != 1 {
		t.Fatalf("len: got %d, want 1", len(list))
	}
	row := list[0]
	if row["date"] != "2026-03-02" || row["reservation_count"] != float64(12) || row["cancelled_count"] != float64(1) || row["total_revenue"] != "88.40" {
		t.Errorf("row: got %v", row)
	}
	if !store.dailyArg.CafeteriaID.Valid || store.dailyArg.CafeteriaID.Int32 != 4 {
		t.Errorf("cafeteria filter: got %+v", store.dailyArg.CafeteriaID)
	}
}

func TestDailySales_AllCafeterias(t *testing.T) {
	store := &mockReportsStore{}
	router := setupReportsRouter(store)

	rr := doAuthRequest(t, router, "GET", "/reports/daily-sales", nil, adminClaims)
	expectStatus(t, rr, http.StatusOK)

	if store.dailyArg.CafeteriaID.Valid {
		t.Errorf("expected no cafeteria filter, got %+v", store.dailyArg.CafeteriaID)
	}
}

func TestDailySales_InvalidCafeteria(t *testing.T) {
	rr := doAuthRequest(t, setupReportsRouter(&mockReportsStore{}), "GET", "/reports/daily-sales?cafeteria_id=abc", nil, adminClaims)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestReports_StoreError(t *testing.T) {
	router := setupReportsRouter(&mockReportsStore{err: errors.New("connection reset")})

	rr := doAuthRequest(t, router, "GET", "/reports/daily-sales", nil, adminClaims)
	expectStatus(t, rr, http.StatusInternalServerError)

	if resp := decodeObject(t, rr); resp["error"] != "internal server error" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestReports_AdminOnly(t *testing.T) {
	router := setupReportsRouter(&mockReportsStore{})

	rr := doAuthRequest(t, router, "GET", "/reports/popular-dishes", nil, staffClaims)
	expectStatus(t, rr, http.StatusForbidden)

	rr = doAuthRequest(t, router, "GET", "/reports/popular-dishes", nil, studentClaims)
	expectStatus(t, rr, http.StatusForbidden)
}
