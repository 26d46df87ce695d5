package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/enum"
	"github.com/cantina-pos/api/internal/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	log "github.com/sirupsen/logrus"
)

// MenuStore defines the DB methods needed to compose daily menus.
type MenuStore interface {
	GetCafeteria(ctx context.Context, id int32) (database.Cafeteria, error)
	GetDish(ctx context.Context, id int32) (database.Dish, error)
	GetDailyMenu(ctx context.Context, id int32) (database.DailyMenu, error)
	GetDailyMenuByCafeteriaAndDate(ctx context.Context, arg database.GetDailyMenuByCafeteriaAndDateParams) (database.DailyMenu, error)
	ListDailyMenus(ctx context.Context, arg database.ListDailyMenusParams) ([]database.DailyMenu, error)
	CreateDailyMenu(ctx context.Context, arg database.CreateDailyMenuParams) (database.DailyMenu, error)
	UpdateDailyMenu(ctx context.Context, arg database.UpdateDailyMenuParams) (database.DailyMenu, error)
	DeleteDailyMenu(ctx context.Context, id int32) (int64, error)
	DeleteDailyMenuByCafeteriaAndDate(ctx context.Context, arg database.DeleteDailyMenuByCafeteriaAndDateParams) (int64, error)
	CreateDailyMenuItem(ctx context.Context, arg database.CreateDailyMenuItemParams) (database.DailyMenuItem, error)
	GetDailyMenuItem(ctx context.Context, id int32) (database.DailyMenuItem, error)
	UpdateDailyMenuItem(ctx context.Context, arg database.UpdateDailyMenuItemParams) (database.DailyMenuItem, error)
	DeleteDailyMenuItem(ctx context.Context, id int32) (database.DailyMenuItem, error)
	ListDailyMenuItemsByMenu(ctx context.Context, menuID int32) ([]database.DailyMenuItem, error)
	ListMenuDishesForCafeteria(ctx context.Context, arg database.ListMenuDishesForCafeteriaParams) ([]database.ListMenuDishesForCafeteriaRow, error)
}

// NewMenuStore creates a MenuStore from a DBTX (pool or tx).
type NewMenuStore func(db database.DBTX) MenuStore

// MenuEntry is one dish on a cafeteria's menu for a day, as served to clients
// and stored in the menu cache.
type MenuEntry struct {
	ItemID       int32  `json:"item_id"`
	DishID       int32  `json:"dish_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        string `json:"price"`
	Category     string `json:"category"`
	Role         string `json:"role"`
	DisplayOrder int32  `json:"display_order"`
	IsAvailable  bool   `json:"is_available"`
}

// MenuCache stores rendered cafeteria menus keyed by cafeteria and date.
type MenuCache interface {
	GetMenu(ctx context.Context, cafeteriaID int32, date time.Time) ([]MenuEntry, bool, error)
	SetMenu(ctx context.Context, cafeteriaID int32, date time.Time, entries []MenuEntry) error
	InvalidateMenu(ctx context.Context, cafeteriaID int32, date time.Time) error
	InvalidateAll(ctx context.Context) error
}

// NopMenuCache never hits.
type NopMenuCache struct{}

func (NopMenuCache) GetMenu(context.Context, int32, time.Time) ([]MenuEntry, bool, error) {
	return nil, false, nil
}
func (NopMenuCache) SetMenu(context.Context, int32, time.Time, []MenuEntry) error { return nil }
func (NopMenuCache) InvalidateMenu(context.Context, int32, time.Time) error      { return nil }
func (NopMenuCache) InvalidateAll(context.Context) error                         { return nil }

// MenuItemInput places a dish on a menu. DisplayOrder 0 means 1.
type MenuItemInput struct {
	DishID       int32
	Role         string
	DisplayOrder int32
}

func (in *MenuItemInput) normalize() error {
	if in.DishID <= 0 {
		return ErrInvalidDishID
	}
	if !enum.IsValidDishCategory(in.Role) {
		return ErrInvalidRole
	}
	if in.DisplayOrder == 0 {
		in.DisplayOrder = 1
	}
	if in.DisplayOrder < 0 {
		return ErrInvalidDisplayOrder
	}
	return nil
}

// MenuWithItems is a daily menu and its items ordered by display_order.
type MenuWithItems struct {
	Menu  database.DailyMenu
	Items []database.DailyMenuItem
}

// MenuFilter narrows ListMenus. Zero values mean no filter.
type MenuFilter struct {
	CafeteriaID int32
	Date        time.Time
	Limit       int32
	Offset      int32
}

// MenuService composes daily menus. Every write runs in a transaction and
// drops the affected cache entry after commit.
type MenuService struct {
	pool     TxBeginner
	newStore NewMenuStore
	store    MenuStore
	cache    MenuCache
}

// NewMenuService creates a new MenuService. store serves reads outside a
// transaction; cache may be nil.
func NewMenuService(pool TxBeginner, newStore NewMenuStore, store MenuStore, cache MenuCache) *MenuService {
	if cache == nil {
		cache = NopMenuCache{}
	}
	return &MenuService{pool: pool, newStore: newStore, store: store, cache: cache}
}

// menuDate truncates t to its calendar day in UTC.
func menuDate(t time.Time) (pgtype.Date, error) {
	if t.IsZero() {
		return pgtype.Date{}, ErrMenuDateRequired
	}
	y, m, d := t.Date()
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}, nil
}

type cafeteriaGetter interface {
	GetCafeteria(ctx context.Context, id int32) (database.Cafeteria, error)
}

func requireCafeteria(ctx context.Context, store cafeteriaGetter, id int32) error {
	if id <= 0 {
		return ErrInvalidCafeteriaID
	}
	if _, err := store.GetCafeteria(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCafeteriaNotFound
		}
		return fmt.Errorf("get cafeteria: %w", err)
	}
	return nil
}

func requireDish(ctx context.Context, store MenuStore, id int32) error {
	if _, err := store.GetDish(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDishNotFound
		}
		return fmt.Errorf("get dish: %w", err)
	}
	return nil
}

func getMenu(ctx context.Context, store MenuStore, id int32) (database.DailyMenu, error) {
	menu, err := store.GetDailyMenu(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DailyMenu{}, ErrMenuNotFound
		}
		return database.DailyMenu{}, fmt.Errorf("get daily menu: %w", err)
	}
	return menu, nil
}

func (s *MenuService) invalidate(ctx context.Context, cafeteriaID int32, date pgtype.Date) {
	if err := s.cache.InvalidateMenu(ctx, cafeteriaID, date.Time); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"cafeteria_id": cafeteriaID,
			"menu_date":    date.Time.Format(time.DateOnly),
		}).Warn("invalidate menu cache")
	}
}

// CreateDailyMenu creates the menu for a cafeteria and day. There is at most
// one menu per pair.
func (s *MenuService) CreateDailyMenu(ctx context.Context, cafeteriaID int32, date time.Time) (database.DailyMenu, error) {
	day, err := menuDate(date)
	if err != nil {
		return database.DailyMenu{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.DailyMenu{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := requireCafeteria(ctx, store, cafeteriaID); err != nil {
		return database.DailyMenu{}, err
	}

	_, err = store.GetDailyMenuByCafeteriaAndDate(ctx, database.GetDailyMenuByCafeteriaAndDateParams{
		CafeteriaID: cafeteriaID,
		MenuDate:    day,
	})
	if err == nil {
		return database.DailyMenu{}, ErrMenuExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.DailyMenu{}, fmt.Errorf("get daily menu: %w", err)
	}

	menu, err := store.CreateDailyMenu(ctx, database.CreateDailyMenuParams{
		CafeteriaID: cafeteriaID,
		MenuDate:    day,
	})
	if err != nil {
		// A concurrent create of the same pair loses on the unique key.
		if isMenuConflict(err) {
			return database.DailyMenu{}, ErrMenuExists
		}
		return database.DailyMenu{}, fmt.Errorf("create daily menu: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.DailyMenu{}, fmt.Errorf("commit tx: %w", err)
	}
	s.invalidate(ctx, cafeteriaID, day)
	return menu, nil
}

// UpdateDailyMenu moves a menu to another cafeteria and/or day. Moving onto a
// pair that already has a menu is ErrMenuExists.
func (s *MenuService) UpdateDailyMenu(ctx context.Context, id, cafeteriaID int32, date time.Time) (database.DailyMenu, error) {
	day, err := menuDate(date)
	if err != nil {
		return database.DailyMenu{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.DailyMenu{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := getMenu(ctx, store, id)
	if err != nil {
		return database.DailyMenu{}, err
	}
	if err := requireCafeteria(ctx, store, cafeteriaID); err != nil {
		return database.DailyMenu{}, err
	}

	other, err := store.GetDailyMenuByCafeteriaAndDate(ctx, database.GetDailyMenuByCafeteriaAndDateParams{
		CafeteriaID: cafeteriaID,
		MenuDate:    day,
	})
	switch {
	case err == nil && other.ID != id:
		return database.DailyMenu{}, ErrMenuExists
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		return database.DailyMenu{}, fmt.Errorf("get daily menu: %w", err)
	}

	menu, err := store.UpdateDailyMenu(ctx, database.UpdateDailyMenuParams{
		ID:          id,
		CafeteriaID: cafeteriaID,
		MenuDate:    day,
	})
	if err != nil {
		if isMenuConflict(err) {
			return database.DailyMenu{}, ErrMenuExists
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DailyMenu{}, ErrMenuNotFound
		}
		return database.DailyMenu{}, fmt.Errorf("update daily menu: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.DailyMenu{}, fmt.Errorf("commit tx: %w", err)
	}
	s.invalidate(ctx, current.CafeteriaID, current.MenuDate)
	s.invalidate(ctx, menu.CafeteriaID, menu.MenuDate)
	return menu, nil
}

// DeleteDailyMenu removes a menu and its items.
func (s *MenuService) DeleteDailyMenu(ctx context.Context, id int32) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	menu, err := getMenu(ctx, store, id)
	if err != nil {
		return err
	}
	if _, err := store.DeleteDailyMenu(ctx, id); err != nil {
		return fmt.Errorf("delete daily menu: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.invalidate(ctx, menu.CafeteriaID, menu.MenuDate)
	return nil
}

// ReplaceDailyMenu swaps the menu of a cafeteria and day for a new one built
// from items, in one transaction: either the old menu survives untouched or
// the new one is fully in place. An empty item list only clears the day and
// returns nil.
func (s *MenuService) ReplaceDailyMenu(ctx context.Context, cafeteriaID int32, date time.Time, items []MenuItemInput) (*MenuWithItems, error) {
	day, err := menuDate(date)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if err := items[i].normalize(); err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := requireCafeteria(ctx, store, cafeteriaID); err != nil {
		return nil, err
	}

	if _, err := store.DeleteDailyMenuByCafeteriaAndDate(ctx, database.DeleteDailyMenuByCafeteriaAndDateParams{
		CafeteriaID: cafeteriaID,
		MenuDate:    day,
	}); err != nil {
		return nil, fmt.Errorf("delete daily menu: %w", err)
	}

	var result *MenuWithItems
	if len(items) > 0 {
		menu, err := store.CreateDailyMenu(ctx, database.CreateDailyMenuParams{
			CafeteriaID: cafeteriaID,
			MenuDate:    day,
		})
		if err != nil {
			if isMenuConflict(err) {
				return nil, ErrMenuExists
			}
			return nil, fmt.Errorf("create daily menu: %w", err)
		}

		result = &MenuWithItems{Menu: menu, Items: make([]database.DailyMenuItem, 0, len(items))}
		for i, in := range items {
			if err := requireDish(ctx, store, in.DishID); err != nil {
				return nil, fmt.Errorf("items[%d]: %w", i, err)
			}
			item, err := store.CreateDailyMenuItem(ctx, database.CreateDailyMenuItemParams{
				MenuID:       menu.ID,
				DishID:       in.DishID,
				Role:         in.Role,
				DisplayOrder: in.DisplayOrder,
			})
			if err != nil {
				if isForeignKeyViolation(err) {
					return nil, fmt.Errorf("items[%d]: %w", i, ErrDishNotFound)
				}
				return nil, fmt.Errorf("items[%d]: create menu item: %w", i, err)
			}
			result.Items = append(result.Items, item)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	s.invalidate(ctx, cafeteriaID, day)
	return result, nil
}

// AddMenuItem puts a dish on an existing menu.
func (s *MenuService) AddMenuItem(ctx context.Context, menuID int32, in MenuItemInput) (database.DailyMenuItem, error) {
	if err := in.normalize(); err != nil {
		return database.DailyMenuItem{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.DailyMenuItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	menu, err := getMenu(ctx, store, menuID)
	if err != nil {
		return database.DailyMenuItem{}, err
	}
	if err := requireDish(ctx, store, in.DishID); err != nil {
		return database.DailyMenuItem{}, err
	}

	item, err := store.CreateDailyMenuItem(ctx, database.CreateDailyMenuItemParams{
		MenuID:       menuID,
		DishID:       in.DishID,
		Role:         in.Role,
		DisplayOrder: in.DisplayOrder,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return database.DailyMenuItem{}, ErrDishNotFound
		}
		return database.DailyMenuItem{}, fmt.Errorf("create menu item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.DailyMenuItem{}, fmt.Errorf("commit tx: %w", err)
	}
	s.invalidate(ctx, menu.CafeteriaID, menu.MenuDate)
	return item, nil
}

// UpdateMenuItem changes the dish, role or position of a menu item.
func (s *MenuService) UpdateMenuItem(ctx context.Context, itemID int32, in MenuItemInput) (database.DailyMenuItem, error) {
	if err := in.normalize(); err != nil {
		return database.DailyMenuItem{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.DailyMenuItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetDailyMenuItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DailyMenuItem{}, ErrMenuItemNotFound
		}
		return database.DailyMenuItem{}, fmt.Errorf("get menu item: %w", err)
	}
	if err := requireDish(ctx, store, in.DishID); err != nil {
		return database.DailyMenuItem{}, err
	}

	item, err := store.UpdateDailyMenuItem(ctx, database.UpdateDailyMenuItemParams{
		ID:           itemID,
		DishID:       in.DishID,
		Role:         in.Role,
		DisplayOrder: in.DisplayOrder,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return database.DailyMenuItem{}, ErrDishNotFound
		}
		return database.DailyMenuItem{}, fmt.Errorf("update menu item: %w", err)
	}

	menu, err := getMenu(ctx, store, current.MenuID)
	if err != nil {
		return database.DailyMenuItem{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.DailyMenuItem{}, fmt.Errorf("commit tx: %w", err)
	}
	s.invalidate(ctx, menu.CafeteriaID, menu.MenuDate)
	return item, nil
}

// RemoveMenuItem takes an item off its menu.
func (s *MenuService) RemoveMenuItem(ctx context.Context, itemID int32) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.DeleteDailyMenuItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMenuItemNotFound
		}
		return fmt.Errorf("delete menu item: %w", err)
	}
	menu, err := getMenu(ctx, store, item.MenuID)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.invalidate(ctx, menu.CafeteriaID, menu.MenuDate)
	return nil
}

// GetMenu returns a menu with its items.
func (s *MenuService) GetMenu(ctx context.Context, id int32) (*MenuWithItems, error) {
	menu, err := getMenu(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListDailyMenuItemsByMenu(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return &MenuWithItems{Menu: menu, Items: items}, nil
}

// ListMenus returns menus, newest day first.
func (s *MenuService) ListMenus(ctx context.Context, f MenuFilter) ([]database.DailyMenu, error) {
	params := database.ListDailyMenusParams{Limit: f.Limit, Offset: f.Offset}
	if f.CafeteriaID > 0 {
		params.CafeteriaID = pgtype.Int4{Int32: f.CafeteriaID, Valid: true}
	}
	if !f.Date.IsZero() {
		params.MenuDate, _ = menuDate(f.Date)
	}
	menus, err := s.store.ListDailyMenus(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list daily menus: %w", err)
	}
	return menus, nil
}

// MenuForCafeteria returns the dishes served by a cafeteria on a day, in
// display order. Results are cached; cache failures only cost a DB read.
func (s *MenuService) MenuForCafeteria(ctx context.Context, cafeteriaID int32, date time.Time) ([]MenuEntry, error) {
	day, err := menuDate(date)
	if err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{
		"cafeteria_id": cafeteriaID,
		"menu_date":    day.Time.Format(time.DateOnly),
	})

	entries, hit, err := s.cache.GetMenu(ctx, cafeteriaID, day.Time)
	if err != nil {
		logger.WithError(err).Warn("read menu cache")
	}
	if hit {
		return entries, nil
	}

	if err := requireCafeteria(ctx, s.store, cafeteriaID); err != nil {
		return nil, err
	}

	rows, err := s.store.ListMenuDishesForCafeteria(ctx, database.ListMenuDishesForCafeteriaParams{
		CafeteriaID: cafeteriaID,
		MenuDate:    day,
	})
	if err != nil {
		return nil, fmt.Errorf("list menu dishes: %w", err)
	}

	entries = make([]MenuEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, MenuEntry{
			ItemID:       r.ItemID,
			DishID:       r.DishID,
			Name:         r.Name,
			Description:  r.Description.String,
			Price:        money.Format(r.Price),
			Category:     r.Category,
			Role:         r.Role,
			DisplayOrder: r.DisplayOrder,
			IsAvailable:  r.IsAvailable,
		})
	}

	if err := s.cache.SetMenu(ctx, cafeteriaID, day.Time, entries); err != nil {
		logger.WithError(err).Warn("write menu cache")
	}
	return entries, nil
}
