package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/enum"
	"github.com/cantina-pos/api/internal/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CatalogStore defines the DB methods needed to maintain dishes and to guard
// deletes of dishes and cafeterias.
type CatalogStore interface {
	CreateDish(ctx context.Context, arg database.CreateDishParams) (database.Dish, error)
	UpdateDish(ctx context.Context, arg database.UpdateDishParams) (database.Dish, error)
	LockDish(ctx context.Context, id int32) (int32, error)
	CountDishReferences(ctx context.Context, id int32) (database.CountDishReferencesRow, error)
	DeleteDish(ctx context.Context, id int32) error
	LockCafeteria(ctx context.Context, id int32) (int32, error)
	CountCafeteriaReferences(ctx context.Context, id int32) (database.CountCafeteriaReferencesRow, error)
	DeleteCafeteria(ctx context.Context, id int32) error
}

// NewCatalogStore creates a CatalogStore from a DBTX (pool or tx).
type NewCatalogStore func(db database.DBTX) CatalogStore

// DishInput is the writable part of a dish.
type DishInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	IsAvailable bool
}

func (in *DishInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.Price.IsNegative() || money.CheckPrecision(in.Price) != nil {
		return ErrInvalidPrice
	}
	if !enum.IsValidDishCategory(in.Category) {
		return ErrInvalidCategory
	}
	return nil
}

func (in DishInput) description() pgtype.Text {
	return pgtype.Text{String: in.Description, Valid: in.Description != ""}
}

// CatalogService maintains dishes and owns the referential-integrity guard:
// a dish or cafeteria that is still referenced is never deleted.
type CatalogService struct {
	pool     TxBeginner
	newStore NewCatalogStore
	store    CatalogStore
	cache    MenuCache
}

// NewCatalogService creates a new CatalogService. cache may be nil.
func NewCatalogService(pool TxBeginner, newStore NewCatalogStore, store CatalogStore, cache MenuCache) *CatalogService {
	if cache == nil {
		cache = NopMenuCache{}
	}
	return &CatalogService{pool: pool, newStore: newStore, store: store, cache: cache}
}

// CreateDish adds a dish to the catalog.
func (s *CatalogService) CreateDish(ctx context.Context, in DishInput) (database.Dish, error) {
	if err := in.validate(); err != nil {
		return database.Dish{}, err
	}
	dish, err := s.store.CreateDish(ctx, database.CreateDishParams{
		Name:        in.Name,
		Description: in.description(),
		Price:       money.ToNumeric(in.Price),
		Category:    in.Category,
		IsAvailable: in.IsAvailable,
	})
	if err != nil {
		return database.Dish{}, fmt.Errorf("create dish: %w", err)
	}
	return dish, nil
}

// UpdateDish overwrites a dish. Existing order items keep the price they
// were placed at; cached menus are dropped since any of them may show it.
func (s *CatalogService) UpdateDish(ctx context.Context, id int32, in DishInput) (database.Dish, error) {
	if err := in.validate(); err != nil {
		return database.Dish{}, err
	}
	dish, err := s.store.UpdateDish(ctx, database.UpdateDishParams{
		ID:          id,
		Name:        in.Name,
		Description: in.description(),
		Price:       money.ToNumeric(in.Price),
		Category:    in.Category,
		IsAvailable: in.IsAvailable,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Dish{}, ErrDishNotFound
		}
		return database.Dish{}, fmt.Errorf("update dish: %w", err)
	}
	s.flushMenus(ctx)
	return dish, nil
}

// DeleteDish removes a dish that no menu item or order item refers to.
func (s *CatalogService) DeleteDish(ctx context.Context, id int32) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.LockDish(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDishNotFound
		}
		return fmt.Errorf("lock dish: %w", err)
	}

	refs, err := store.CountDishReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("count dish references: %w", err)
	}
	if refs.MenuItemCount > 0 || refs.OrderItemCount > 0 {
		return ErrDishInUse
	}

	if err := store.DeleteDish(ctx, id); err != nil {
		// A reference inserted after the count still trips the FK.
		if isForeignKeyViolation(err) {
			return ErrDishInUse
		}
		return fmt.Errorf("delete dish: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.flushMenus(ctx)
	return nil
}

// DeleteCafeteria removes a cafeteria that has no menus and no reservations.
func (s *CatalogService) DeleteCafeteria(ctx context.Context, id int32) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.LockCafeteria(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCafeteriaNotFound
		}
		return fmt.Errorf("lock cafeteria: %w", err)
	}

	refs, err := store.CountCafeteriaReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("count cafeteria references: %w", err)
	}
	if refs.MenuCount > 0 || refs.ReservationCount > 0 {
		return ErrCafeteriaInUse
	}

	if err := store.DeleteCafeteria(ctx, id); err != nil {
		if isForeignKeyViolation(err) {
			return ErrCafeteriaInUse
		}
		return fmt.Errorf("delete cafeteria: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *CatalogService) flushMenus(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.WithError(err).Warn("flush menu cache")
	}
}
