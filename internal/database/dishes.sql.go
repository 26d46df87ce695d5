package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listDishes = `-- name: ListDishes :many
SELECT id, name, description, price, category, is_available, created_at, updated_at FROM dishes
WHERE ($1::text IS NULL OR category = $1::text)
  AND ($2::boolean IS NULL OR is_available = $2::boolean)
ORDER BY category, name
`

type ListDishesParams struct {
	Category    pgtype.Text `json:"category"`
	IsAvailable pgtype.Bool `json:"is_available"`
}

func (q *Queries) ListDishes(ctx context.Context, arg ListDishesParams) ([]Dish, error) {
	rows, err := q.db.Query(ctx, listDishes, arg.Category, arg.IsAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Dish{}
	for rows.Next() {
		var i Dish
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.Price,
			&i.Category,
			&i.IsAvailable,
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

const getDish = `-- name: GetDish :one
SELECT id, name, description, price, category, is_available, created_at, updated_at FROM dishes
WHERE id = $1
`

func (q *Queries) GetDish(ctx context.Context, id int32) (Dish, error) {
	row := q.db.QueryRow(ctx, getDish, id)
	var i Dish
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createDish = `-- name: CreateDish :one
INSERT INTO dishes (name, description, price, category, is_available)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, description, price, category, is_available, created_at, updated_at
`

type CreateDishParams struct {
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    string         `json:"category"`
	IsAvailable bool           `json:"is_available"`
}

func (q *Queries) CreateDish(ctx context.Context, arg CreateDishParams) (Dish, error) {
	row := q.db.QueryRow(ctx, createDish,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Category,
		arg.IsAvailable,
	)
	var i Dish
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateDish = `-- name: UpdateDish :one
UPDATE dishes
SET name = $2, description = $3, price = $4, category = $5, is_available = $6, updated_at = now()
WHERE id = $1
RETURNING id, name, description, price, category, is_available, created_at, updated_at
`

type UpdateDishParams struct {
	ID          int32          `json:"id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    string         `json:"category"`
	IsAvailable bool           `json:"is_available"`
}

func (q *Queries) UpdateDish(ctx context.Context, arg UpdateDishParams) (Dish, error) {
	row := q.db.QueryRow(ctx, updateDish,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Category,
		arg.IsAvailable,
	)
	var i Dish
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const lockDish = `-- name: LockDish :one
SELECT id FROM dishes
WHERE id = $1
FOR UPDATE
`

// LockDish blocks concurrent inserts of menu items or order items that
// reference the dish until the surrounding transaction ends.
func (q *Queries) LockDish(ctx context.Context, id int32) (int32, error) {
	row := q.db.QueryRow(ctx, lockDish, id)
	var locked int32
	err := row.Scan(&locked)
	return locked, err
}

const countDishReferences = `-- name: CountDishReferences :one
SELECT
    (SELECT count(*) FROM daily_menu_items WHERE dish_id = $1)::bigint AS menu_item_count,
    (SELECT count(*) FROM order_items WHERE dish_id = $1)::bigint AS order_item_count
`

type CountDishReferencesRow struct {
	MenuItemCount  int64 `json:"menu_item_count"`
	OrderItemCount int64 `json:"order_item_count"`
}

func (q *Queries) CountDishReferences(ctx context.Context, id int32) (CountDishReferencesRow, error) {
	row := q.db.QueryRow(ctx, countDishReferences, id)
	var i CountDishReferencesRow
	err := row.Scan(&i.MenuItemCount, &i.OrderItemCount)
	return i, err
}

const deleteDish = `-- name: DeleteDish :exec
DELETE FROM dishes
WHERE id = $1
`

func (q *Queries) DeleteDish(ctx context.Context, id int32) error {
	_, err := q.db.Exec(ctx, deleteDish, id)
	return err
}
