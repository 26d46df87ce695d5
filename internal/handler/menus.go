package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/service"
)

// MenuServicer composes daily menus. Satisfied by *service.MenuService.
type MenuServicer interface {
	CreateDailyMenu(ctx context.Context, cafeteriaID int32, date time.Time) (database.DailyMenu, error)
	UpdateDailyMenu(ctx context.Context, id, cafeteriaID int32, date time.Time) (database.DailyMenu, error)
	DeleteDailyMenu(ctx context.Context, id int32) error
	ReplaceDailyMenu(ctx context.Context, cafeteriaID int32, date time.Time, items []service.MenuItemInput) (*service.MenuWithItems, error)
	AddMenuItem(ctx context.Context, menuID int32, in service.MenuItemInput) (database.DailyMenuItem, error)
	UpdateMenuItem(ctx context.Context, itemID int32, in service.MenuItemInput) (database.DailyMenuItem, error)
	RemoveMenuItem(ctx context.Context, itemID int32) error
	GetMenu(ctx context.Context, id int32) (*service.MenuWithItems, error)
	ListMenus(ctx context.Context, f service.MenuFilter) ([]database.DailyMenu, error)
	MenuForCafeteria(ctx context.Context, cafeteriaID int32, date time.Time) ([]service.MenuEntry, error)
}

// MenuHandler handles daily menu endpoints.
type MenuHandler struct {
	service MenuServicer
	now     func() time.Time
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(svc MenuServicer) *MenuHandler {
	return &MenuHandler{service: svc, now: time.Now}
}

// RegisterRoutes registers the read endpoints. CafeteriaMenu is mounted by
// the router under /cafeterias/{id}/menu.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-menus", h.List)
	r.Get("/daily-menu/{id}", h.Get)
}

// RegisterAdminRoutes registers the write endpoints. Expected behind
// RequireRole(admin).
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/daily-menu", h.Create)
	r.Put("/daily-menu/replace", h.Replace)
	r.Put("/daily-menu/{id}", h.Update)
	r.Delete("/daily-menu/{id}", h.Delete)
	r.Post("/daily-menu/{id}/items", h.AddItem)
	r.Put("/daily-menu-item/{id}", h.UpdateItem)
	r.Delete("/daily-menu-item/{id}", h.DeleteItem)
}

// --- Request / Response types ---

type dailyMenuRequest struct {
	CafeteriaID int32  `json:"cafeteria_id"`
	MenuDate    string `json:"menu_date"`
}

type menuItemRequest struct {
	DishID       int32  `json:"dish_id"`
	Role         string `json:"role"`
	DisplayOrder int32  `json:"display_order"`
}

func (req menuItemRequest) input() service.MenuItemInput {
	return service.MenuItemInput{DishID: req.DishID, Role: req.Role, DisplayOrder: req.DisplayOrder}
}

type replaceMenuRequest struct {
	CafeteriaID int32             `json:"cafeteria_id"`
	MenuDate    string            `json:"menu_date"`
	Items       []menuItemRequest `json:"items"`
}

type dailyMenuResponse struct {
	ID          int32     `json:"id"`
	CafeteriaID int32     `json:"cafeteria_id"`
	MenuDate    string    `json:"menu_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type menuItemResponse struct {
	ID           int32  `json:"id"`
	MenuID       int32  `json:"menu_id"`
	DishID       int32  `json:"dish_id"`
	Role         string `json:"role"`
	DisplayOrder int32  `json:"display_order"`
}

type dailyMenuDetailResponse struct {
	dailyMenuResponse
	Items []menuItemResponse `json:"items"`
}

type cafeteriaMenuResponse struct {
	CafeteriaID int32               `json:"cafeteria_id"`
	MenuDate    string              `json:"menu_date"`
	Dishes      []service.MenuEntry `json:"dishes"`
}

func toDailyMenuResponse(m database.DailyMenu) dailyMenuResponse {
	return dailyMenuResponse{
		ID:          m.ID,
		CafeteriaID: m.CafeteriaID,
		MenuDate:    m.MenuDate.Time.Format(time.DateOnly),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toMenuItemResponse(i database.DailyMenuItem) menuItemResponse {
	return menuItemResponse{
		ID:           i.ID,
		MenuID:       i.MenuID,
		DishID:       i.DishID,
		Role:         i.Role,
		DisplayOrder: i.DisplayOrder,
	}
}

func toDailyMenuDetailResponse(m *service.MenuWithItems) dailyMenuDetailResponse {
	items := make([]menuItemResponse, len(m.Items))
	for i, it := range m.Items {
		items[i] = toMenuItemResponse(it)
	}
	return dailyMenuDetailResponse{dailyMenuResponse: toDailyMenuResponse(m.Menu), Items: items}
}

// parseDate reads a YYYY-MM-DD date. An empty string is the zero time, which
// the service rejects as a missing date.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// --- Handlers ---

// Create handles POST /daily-menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dailyMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, ok := parseDate(req.MenuDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "menu_date must be YYYY-MM-DD")
		return
	}

	menu, err := h.service.CreateDailyMenu(r.Context(), req.CafeteriaID, date)
	if err != nil {
		writeServiceError(w, r, "create daily menu", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDailyMenuResponse(menu))
}

// Update handles PUT /daily-menu/{id}.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu ID")
		return
	}

	var req dailyMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, ok := parseDate(req.MenuDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "menu_date must be YYYY-MM-DD")
		return
	}

	menu, err := h.service.UpdateDailyMenu(r.Context(), id, req.CafeteriaID, date)
	if err != nil {
		writeServiceError(w, r, "update daily menu", err)
		return
	}

	writeJSON(w, http.StatusOK, toDailyMenuResponse(menu))
}

// Delete handles DELETE /daily-menu/{id}. Items go with the menu.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu ID")
		return
	}

	if err := h.service.DeleteDailyMenu(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete daily menu", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "daily menu deleted"})
}

// Replace handles PUT /daily-menu/replace. An empty items list clears the day
// and answers 204.
func (h *MenuHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req replaceMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, ok := parseDate(req.MenuDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "menu_date must be YYYY-MM-DD")
		return
	}

	items := make([]service.MenuItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = it.input()
	}

	menu, err := h.service.ReplaceDailyMenu(r.Context(), req.CafeteriaID, date, items)
	if err != nil {
		writeServiceError(w, r, "replace daily menu", err)
		return
	}
	if menu == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, toDailyMenuDetailResponse(menu))
}

// AddItem handles POST /daily-menu/{id}/items.
func (h *MenuHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu ID")
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.service.AddMenuItem(r.Context(), menuID, req.input())
	if err != nil {
		writeServiceError(w, r, "add menu item", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// UpdateItem handles PUT /daily-menu-item/{id}.
func (h *MenuHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.service.UpdateMenuItem(r.Context(), itemID, req.input())
	if err != nil {
		writeServiceError(w, r, "update menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// DeleteItem handles DELETE /daily-menu-item/{id}.
func (h *MenuHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	if err := h.service.RemoveMenuItem(r.Context(), itemID); err != nil {
		writeServiceError(w, r, "remove menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "menu item removed"})
}

// Get handles GET /daily-menu/{id}.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid menu ID")
		return
	}

	menu, err := h.service.GetMenu(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get daily menu", err)
		return
	}

	writeJSON(w, http.StatusOK, toDailyMenuDetailResponse(menu))
}

// List handles GET /daily-menus with optional cafeteria_id and date filters.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePagination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pagination")
		return
	}
	f := service.MenuFilter{Limit: limit, Offset: offset}

	q := r.URL.Query()
	if v := q.Get("cafeteria_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid cafeteria_id")
			return
		}
		f.CafeteriaID = int32(id)
	}
	if f.Date, ok = parseDate(q.Get("date")); !ok {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	menus, err := h.service.ListMenus(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, "list daily menus", err)
		return
	}

	resp := make([]dailyMenuResponse, len(menus))
	for i, m := range menus {
		resp[i] = toDailyMenuResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

// CafeteriaMenu handles GET /cafeterias/{id}/menu?date=YYYY-MM-DD. The date
// defaults to today (UTC).
func (h *MenuHandler) CafeteriaMenu(w http.ResponseWriter, r *http.Request) {
	cafeteriaID, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid cafeteria ID")
		return
	}

	date, ok := parseDate(r.URL.Query().Get("date"))
	if !ok {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if date.IsZero() {
		date = h.now().UTC()
	}

	dishes, err := h.service.MenuForCafeteria(r.Context(), cafeteriaID, date)
	if err != nil {
		writeServiceError(w, r, "get cafeteria menu", err)
		return
	}

	writeJSON(w, http.StatusOK, cafeteriaMenuResponse{
		CafeteriaID: cafeteriaID,
		MenuDate:    date.Format(time.DateOnly),
		Dishes:      dishes,
	})
}
