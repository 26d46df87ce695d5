package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const reservationColumns = `id, user_id, cafeteria_id, total, status, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (Reservation, error) {
	var i Reservation
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.CafeteriaID,
		&i.Total,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createReservation = `-- name: CreateReservation :one
INSERT INTO reservations (user_id, cafeteria_id, total, status)
VALUES ($1, $2, $3, $4)
RETURNING ` + reservationColumns

type CreateReservationParams struct {
	UserID      int32          `json:"user_id"`
	CafeteriaID int32          `json:"cafeteria_id"`
	Total       pgtype.Numeric `json:"total"`
	Status      string         `json:"status"`
}

func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	return scanReservation(q.db.QueryRow(ctx, createReservation,
		arg.UserID,
		arg.CafeteriaID,
		arg.Total,
		arg.Status,
	))
}

const getReservation = `-- name: GetReservation :one
SELECT ` + reservationColumns + ` FROM reservations
WHERE id = $1
`

func (q *Queries) GetReservation(ctx context.Context, id int32) (Reservation, error) {
	return scanReservation(q.db.QueryRow(ctx, getReservation, id))
}

const getReservationForUpdate = `-- name: GetReservationForUpdate :one
SELECT ` + reservationColumns + ` FROM reservations
WHERE id = $1
FOR NO KEY UPDATE
`

// GetReservationForUpdate locks the reservation row so two concurrent
// cancellations cannot both observe an active status.
func (q *Queries) GetReservationForUpdate(ctx context.Context, id int32) (Reservation, error) {
	return scanReservation(q.db.QueryRow(ctx, getReservationForUpdate, id))
}

const cancelReservation = `-- name: CancelReservation :one
UPDATE reservations
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND status <> 'cancelled'
RETURNING ` + reservationColumns

func (q *Queries) CancelReservation(ctx context.Context, id int32) (Reservation, error) {
	return scanReservation(q.db.QueryRow(ctx, cancelReservation, id))
}

const listReservationsByUser = `-- name: ListReservationsByUser :many
SELECT ` + reservationColumns + ` FROM reservations
WHERE user_id = $1
  AND ($2::timestamptz IS NULL OR created_at >= $2::timestamptz)
  AND ($3::timestamptz IS NULL OR created_at < $3::timestamptz)
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5
`

type ListReservationsByUserParams struct {
	UserID int32              `json:"user_id"`
	Since  pgtype.Timestamptz `json:"since"`
	Until  pgtype.Timestamptz `json:"until"`
	Limit  int32              `json:"limit"`
	Offset int32              `json:"offset"`
}

func (q *Queries) ListReservationsByUser(ctx context.Context, arg ListReservationsByUserParams) ([]Reservation, error) {
	rows, err := q.db.Query(ctx, listReservationsByUser,
		arg.UserID,
		arg.Since,
		arg.Until,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Reservation{}
	for rows.Next() {
		i, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (reservation_id, dish_id, quantity, is_takeaway, applied_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, reservation_id, dish_id, quantity, is_takeaway, applied_price
`

type CreateOrderItemParams struct {
	ReservationID int32          `json:"reservation_id"`
	DishID        int32          `json:"dish_id"`
	Quantity      int32          `json:"quantity"`
	IsTakeaway    bool           `json:"is_takeaway"`
	AppliedPrice  pgtype.Numeric `json:"applied_price"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.ReservationID,
		arg.DishID,
		arg.Quantity,
		arg.IsTakeaway,
		arg.AppliedPrice,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.ReservationID,
		&i.DishID,
		&i.Quantity,
		&i.IsTakeaway,
		&i.AppliedPrice,
	)
	return i, err
}

const listOrderItemsByReservation = `-- name: ListOrderItemsByReservation :many
SELECT id, reservation_id, dish_id, quantity, is_takeaway, applied_price FROM order_items
WHERE reservation_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByReservation(ctx context.Context, reservationID int32) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByReservation, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.ReservationID,
			&i.DishID,
			&i.Quantity,
			&i.IsTakeaway,
			&i.AppliedPrice,
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
