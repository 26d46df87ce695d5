package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const getMonthlyReservationSummary = `-- name: GetMonthlyReservationSummary :many
SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
       count(*)::bigint AS reservation_count,
       COALESCE(sum(total), 0)::numeric(12,2) AS total_spent
FROM reservations
WHERE user_id = $1 AND status <> 'cancelled'
GROUP BY 1
ORDER BY 1 DESC
LIMIT $2
`

type GetMonthlyReservationSummaryParams struct {
	UserID int32 `json:"user_id"`
	Limit  int32 `json:"limit"`
}

type GetMonthlyReservationSummaryRow struct {
	Month            string         `json:"month"`
	ReservationCount int64          `json:"reservation_count"`
	TotalSpent       pgtype.Numeric `json:"total_spent"`
}

func (q *Queries) GetMonthlyReservationSummary(ctx context.Context, arg GetMonthlyReservationSummaryParams) ([]GetMonthlyReservationSummaryRow, error) {
	rows, err := q.db.Query(ctx, getMonthlyReservationSummary, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetMonthlyReservationSummaryRow{}
	for rows.Next() {
		var i GetMonthlyReservationSummaryRow
		if err := rows.Scan(&i.Month, &i.ReservationCount, &i.TotalSpent); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPopularDishes = `-- name: GetPopularDishes :many
SELECT d.id AS dish_id, d.name AS dish_name,
       COALESCE(sum(oi.quantity), 0)::bigint AS quantity_sold,
       COALESCE(sum(oi.applied_price * oi.quantity), 0)::numeric(12,2) AS total_revenue
FROM order_items oi
JOIN reservations r ON r.id = oi.reservation_id
JOIN dishes d ON d.id = oi.dish_id
WHERE r.status <> 'cancelled'
  AND r.created_at >= $1 AND r.created_at < $2
GROUP BY d.id, d.name
ORDER BY quantity_sold DESC, d.name
LIMIT $3
`

type GetPopularDishesParams struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Limit     int32     `json:"limit"`
}

type GetPopularDishesRow struct {
	DishID       int32          `json:"dish_id"`
	DishName     string         `json:"dish_name"`
	QuantitySold int64          `json:"quantity_sold"`
	TotalRevenue pgtype.Numeric `json:"total_revenue"`
}

func (q *Queries) GetPopularDishes(ctx context.Context, arg GetPopularDishesParams) ([]GetPopularDishesRow, error) {
	rows, err := q.db.Query(ctx, getPopularDishes, arg.StartDate, arg.EndDate, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetPopularDishesRow{}
	for rows.Next() {
		var i GetPopularDishesRow
		if err := rows.Scan(
			&i.DishID,
			&i.DishName,
			&i.QuantitySold,
			&i.TotalRevenue,
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

const getDailySales = `-- name: GetDailySales :many
SELECT created_at::date AS sale_date,
       count(*) FILTER (WHERE status <> 'cancelled')::bigint AS reservation_count,
       count(*) FILTER (WHERE status = 'cancelled')::bigint AS cancelled_count,
       COALESCE(sum(total) FILTER (WHERE status <> 'cancelled'), 0)::numeric(12,2) AS total_revenue
FROM reservations
WHERE ($1::int IS NULL OR cafeteria_id = $1::int)
  AND created_at >= $2 AND created_at < $3
GROUP BY 1
ORDER BY 1
`

type GetDailySalesParams struct {
	CafeteriaID pgtype.Int4 `json:"cafeteria_id"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
}

type GetDailySalesRow struct {
	SaleDate         pgtype.Date    `json:"sale_date"`
	ReservationCount int64          `json:"reservation_count"`
	CancelledCount   int64          `json:"cancelled_count"`
	TotalRevenue     pgtype.Numeric `json:"total_revenue"`
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.CafeteriaID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetDailySalesRow{}
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(
			&i.SaleDate,
			&i.ReservationCount,
			&i.CancelledCount,
			&i.TotalRevenue,
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
