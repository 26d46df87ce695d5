package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getDailyMenu = `-- name: GetDailyMenu :one
SELECT id, cafeteria_id, menu_date, created_at, updated_at FROM daily_menus
WHERE id = $1
`

func (q *Queries) GetDailyMenu(ctx context.Context, id int32) (DailyMenu, error) {
	row := q.db.QueryRow(ctx, getDailyMenu, id)
	var i DailyMenu
	err := row.Scan(
		&i.ID,
		&i.CafeteriaID,
		&i.MenuDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getDailyMenuByCafeteriaAndDate = `-- name: GetDailyMenuByCafeteriaAndDate :one
SELECT id, cafeteria_id, menu_date, created_at, updated_at FROM daily_menus
WHERE cafeteria_id = $1 AND menu_date = $2
`

type GetDailyMenuByCafeteriaAndDateParams struct {
	CafeteriaID int32       `json:"cafeteria_id"`
	MenuDate    pgtype.Date `json:"menu_date"`
}

func (q *Queries) GetDailyMenuByCafeteriaAndDate(ctx context.Context, arg GetDailyMenuByCafeteriaAndDateParams) (DailyMenu, error) {
	row := q.db.QueryRow(ctx, getDailyMenuByCafeteriaAndDate, arg.CafeteriaID, arg.MenuDate)
	var i DailyMenu
	err := row.Scan(
		&i.ID,
		&i.CafeteriaID,
		&i.MenuDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listDailyMenus = `-- name: ListDailyMenus :many
SELECT id, cafeteria_id, menu_date, created_at, updated_at FROM daily_menus
WHERE ($1::int IS NULL OR cafeteria_id = $1::int)
  AND ($2::date IS NULL OR menu_date = $2::date)
ORDER BY menu_date DESC, cafeteria_id
LIMIT $3 OFFSET $4
`

type ListDailyMenusParams struct {
	CafeteriaID pgtype.Int4 `json:"cafeteria_id"`
	MenuDate    pgtype.Date `json:"menu_date"`
	Limit       int32       `json:"limit"`
	Offset      int32       `json:"offset"`
}

func (q *Queries) ListDailyMenus(ctx context.Context, arg ListDailyMenusParams) ([]DailyMenu, error) {
	rows, err := q.db.Query(ctx, listDailyMenus,
		arg.CafeteriaID,
		arg.MenuDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DailyMenu{}
	for rows.Next() {
		var i DailyMenu
		if err := rows.Scan(
			&i.ID,
			&i.CafeteriaID,
			&i.MenuDate,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createDailyMenu = `-- name: CreateDailyMenu :one
INSERT INTO daily_menus (cafeteria_id, menu_date)
VALUES ($1, $2)
RETURNING id, cafeteria_id, menu_date, created_at, updated_at
`

type CreateDailyMenuParams struct {
	CafeteriaID int32       `json:"cafeteria_id"`
	MenuDate    pgtype.Date `json:"menu_date"`
}

func (q *Queries) CreateDailyMenu(ctx context.Context, arg CreateDailyMenuParams) (DailyMenu, error) {
	row := q.db.QueryRow(ctx, createDailyMenu, arg.CafeteriaID, arg.MenuDate)
	var i DailyMenu
	err := row.Scan(
		&i.ID,
		&i.CafeteriaID,
		&i.MenuDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateDailyMenu = `-- name: UpdateDailyMenu :one
UPDATE daily_menus
SET cafeteria_id = $2, menu_date = $3, updated_at = now()
WHERE id = $1
RETURNING id, cafeteria_id, menu_date, created_at, updated_at
`

type UpdateDailyMenuParams struct {
	ID          int32       `json:"id"`
	CafeteriaID int32       `json:"cafeteria_id"`
	MenuDate    pgtype.Date `json:"menu_date"`
}

func (q *Queries) UpdateDailyMenu(ctx context.Context, arg UpdateDailyMenuParams) (DailyMenu, error) {
	row := q.db.QueryRow(ctx, updateDailyMenu, arg.ID, arg.CafeteriaID, arg.MenuDate)
	var i DailyMenu
	err := row.Scan(
		&i.ID,
		&i.CafeteriaID,
		&i.MenuDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteDailyMenu = `-- name: DeleteDailyMenu :execrows
DELETE FROM daily_menus
WHERE id = $1
`

func (q *Queries) DeleteDailyMenu(ctx context.Context, id int32) (int64, error) {
	result, err := q.db.Exec(ctx, deleteDailyMenu, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteDailyMenuByCafeteriaAndDate = `-- name: DeleteDailyMenuByCafeteriaAndDate :execrows
DELETE FROM daily_menus
WHERE cafeteria_id = $1 AND menu_date = $2
`

type DeleteDailyMenuByCafeteriaAndDateParams struct {
	CafeteriaID int32       `json:"cafeteria_id"`
	MenuDate    pgtype.Date `json:"menu_date"`
}

func (q *Queries) DeleteDailyMenuByCafeteriaAndDate(ctx context.Context, arg DeleteDailyMenuByCafeteriaAndDateParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteDailyMenuByCafeteriaAndDate, arg.CafeteriaID, arg.MenuDate)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createDailyMenuItem = `-- name: CreateDailyMenuItem :one
INSERT INTO daily_menu_items (menu_id, dish_id, role, display_order)
VALUES ($1, $2, $3, $4)
RETURNING id, menu_id, dish_id, role, display_order
`

type CreateDailyMenuItemParams struct {
	MenuID       int32  `json:"menu_id"`
	DishID       int32  `json:"dish_id"`
	Role         string `json:"role"`
	DisplayOrder int32  `json:"display_order"`
}

func (q *Queries) CreateDailyMenuItem(ctx context.Context, arg CreateDailyMenuItemParams) (DailyMenuItem, error) {
	row := q.db.QueryRow(ctx, createDailyMenuItem,
		arg.MenuID,
		arg.DishID,
		arg.Role,
		arg.DisplayOrder,
	)
	var i DailyMenuItem
	err := row.Scan(
		&i.ID,
		&i.MenuID,
		&i.DishID,
		&i.Role,
		&i.DisplayOrder,
	)
	return i, err
}

const getDailyMenuItem = `-- name: GetDailyMenuItem :one
SELECT id, menu_id, dish_id, role, display_order FROM daily_menu_items
WHERE id = $1
`

func (q *Queries) GetDailyMenuItem(ctx context.Context, id int32) (DailyMenuItem, error) {
	row := q.db.QueryRow(ctx, getDailyMenuItem, id)
	var i DailyMenuItem
	err := row.Scan(
		&i.ID,
		&i.MenuID,
		&i.DishID,
		&i.Role,
		&i.DisplayOrder,
	)
	return i, err
}

const updateDailyMenuItem = `-- name: UpdateDailyMenuItem :one
UPDATE daily_menu_items
SET dish_id = $2, role = $3, display_order = $4
WHERE id = $1
RETURNING id, menu_id, dish_id, role, display_order
`

type UpdateDailyMenuItemParams struct {
	ID           int32  `json:"id"`
	DishID       int32  `json:"dish_id"`
	Role         string `json:"role"`
	DisplayOrder int32  `json:"display_order"`
}

func (q *Queries) UpdateDailyMenuItem(ctx context.Context, arg UpdateDailyMenuItemParams) (DailyMenuItem, error) {
	row := q.db.QueryRow(ctx, updateDailyMenuItem,
		arg.ID,
		arg.DishID,
		arg.Role,
		arg.DisplayOrder,
	)
	var i DailyMenuItem
	err := row.Scan(
		&i.ID,
		&i.MenuID,
		&i.DishID,
		&i.Role,
		&i.DisplayOrder,
	)
	return i, err
}

const deleteDailyMenuItem = `-- name: DeleteDailyMenuItem :one
DELETE FROM daily_menu_items
WHERE id = $1
RETURNING id, menu_id, dish_id, role, display_order
`

func (q *Queries) DeleteDailyMenuItem(ctx context.Context, id int32) (DailyMenuItem, error) {
	row := q.db.QueryRow(ctx, deleteDailyMenuItem, id)
	var i DailyMenuItem
	err := row.Scan(
		&i.ID,
		&i.MenuID,
		&i.DishID,
		&i.Role,
		&i.DisplayOrder,
	)
	return i, err
}

const listDailyMenuItemsByMenu = `-- name: ListDailyMenuItemsByMenu :many
SELECT id, menu_id, dish_id, role, display_order FROM daily_menu_items
WHERE menu_id = $1
ORDER BY display_order, id
`

func (q *Queries) ListDailyMenuItemsByMenu(ctx context.Context, menuID int32) ([]DailyMenuItem, error) {
	rows, err := q.db.Query(ctx, listDailyMenuItemsByMenu, menuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DailyMenuItem{}
	for rows.Next() {
		var i DailyMenuItem
		if err := rows.Scan(
			&i.ID,
			&i.MenuID,
			&i.DishID,
			&i.Role,
			&i.DisplayOrder,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listMenuDishesForCafeteria = `-- name: ListMenuDishesForCafeteria :many
SELECT mi.id AS item_id, mi.role, mi.display_order,
       d.id AS dish_id, d.name, d.description, d.price, d.category, d.is_available
FROM daily_menus m
JOIN daily_menu_items mi ON mi.menu_id = m.id
JOIN dishes d ON d.id = mi.dish_id
WHERE m.cafeteria_id = $1 AND m.menu_date = $2
ORDER BY mi.display_order, mi.id
`

type ListMenuDishesForCafeteriaParams struct {
	CafeteriaID int32       `json:"cafeteria_id"`
	MenuDate    pgtype.Date `json:"menu_date"`
}

type ListMenuDishesForCafeteriaRow struct {
	ItemID       int32          `json:"item_id"`
	Role         string         `json:"role"`
	DisplayOrder int32          `json:"display_order"`
	DishID       int32          `json:"dish_id"`
	Name         string         `json:"name"`
	Description  pgtype.Text    `json:"description"`
	Price        pgtype.Numeric `json:"price"`
	Category     string         `json:"category"`
	IsAvailable  bool           `json:"is_available"`
}

func (q *Queries) ListMenuDishesForCafeteria(ctx context.Context, arg ListMenuDishesForCafeteriaParams) ([]ListMenuDishesForCafeteriaRow, error) {
	rows, err := q.db.Query(ctx, listMenuDishesForCafeteria, arg.CafeteriaID, arg.MenuDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListMenuDishesForCafeteriaRow{}
	for rows.Next() {
		var i ListMenuDishesForCafeteriaRow
		if err := rows.Scan(
			&i.ItemID,
			&i.Role,
			&i.DisplayOrder,
			&i.DishID,
			&i.Name,
			&i.Description,
			&i.Price,
			&i.Category,
			&i.IsAvailable,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
