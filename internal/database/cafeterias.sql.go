package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listCafeterias = `-- name: ListCafeterias :many
SELECT id, name, address, phone, created_at, updated_at FROM cafeterias
ORDER BY name
`

func (q *Queries) ListCafeterias(ctx context.Context) ([]Cafeteria, error) {
	rows, err := q.db.Query(ctx, listCafeterias)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Cafeteria{}
	for rows.Next() {
		var i Cafeteria
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Address,
			&i.Phone,
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

const getCafeteria = `-- name: GetCafeteria :one
SELECT id, name, address, phone, created_at, updated_at FROM cafeterias
WHERE id = $1
`

func (q *Queries) GetCafeteria(ctx context.Context, id int32) (Cafeteria, error) {
	row := q.db.QueryRow(ctx, getCafeteria, id)
	var i Cafeteria
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Address,
		&i.Phone,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createCafeteria = `-- name: CreateCafeteria :one
INSERT INTO cafeterias (name, address, phone)
VALUES ($1, $2, $3)
RETURNING id, name, address, phone, created_at, updated_at
`

type CreateCafeteriaParams struct {
	Name    string      `json:"name"`
	Address pgtype.Text `json:"address"`
	Phone   pgtype.Text `json:"phone"`
}

func (q *Queries) CreateCafeteria(ctx context.Context, arg CreateCafeteriaParams) (Cafeteria, error) {
	row := q.db.QueryRow(ctx, createCafeteria, arg.Name, arg.Address, arg.Phone)
	var i Cafeteria
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Address,
		&i.Phone,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateCafeteria = `-- name: UpdateCafeteria :one
UPDATE cafeterias
SET name = $2, address = $3, phone = $4, updated_at = now()
WHERE id = $1
RETURNING id, name, address, phone, created_at, updated_at
`

type UpdateCafeteriaParams struct {
	ID      int32       `json:"id"`
	Name    string      `json:"name"`
	Address pgtype.Text `json:"address"`
	Phone   pgtype.Text `json:"phone"`
}

func (q *Queries) UpdateCafeteria(ctx context.Context, arg UpdateCafeteriaParams) (Cafeteria, error) {
	row := q.db.QueryRow(ctx, updateCafeteria, arg.ID, arg.Name, arg.Address, arg.Phone)
	var i Cafeteria
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Address,
		&i.Phone,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const lockCafeteria = `-- name: LockCafeteria :one
SELECT id FROM cafeterias
WHERE id = $1
FOR UPDATE
`

// LockCafeteria takes a row lock that conflicts with the KEY SHARE locks
// Postgres takes when inserting rows that reference the cafeteria.
func (q *Queries) LockCafeteria(ctx context.Context, id int32) (int32, error) {
	row := q.db.QueryRow(ctx, lockCafeteria, id)
	var locked int32
	err := row.Scan(&locked)
	return locked, err
}

const countCafeteriaReferences = `-- name: CountCafeteriaReferences :one
SELECT
    (SELECT count(*) FROM daily_menus WHERE cafeteria_id = $1)::bigint AS menu_count,
    (SELECT count(*) FROM reservations WHERE cafeteria_id = $1)::bigint AS reservation_count
`

type CountCafeteriaReferencesRow struct {
	MenuCount        int64 `json:"menu_count"`
	ReservationCount int64 `json:"reservation_count"`
}

func (q *Queries) CountCafeteriaReferences(ctx context.Context, id int32) (CountCafeteriaReferencesRow, error) {
	row := q.db.QueryRow(ctx, countCafeteriaReferences, id)
	var i CountCafeteriaReferencesRow
	err := row.Scan(&i.MenuCount, &i.ReservationCount)
	return i, err
}

const deleteCafeteria = `-- name: DeleteCafeteria :exec
DELETE FROM cafeterias
WHERE id = $1
`

func (q *Queries) DeleteCafeteria(ctx context.Context, id int32) error {
	_, err := q.db.Exec(ctx, deleteCafeteria, id)
	return err
}
