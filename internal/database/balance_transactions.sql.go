package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createBalanceTransaction = `-- name: CreateBalanceTransaction :one
INSERT INTO balance_transactions (user_id, reservation_id, kind, amount, balance_after)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, reservation_id, kind, amount, balance_after, created_at
`

type CreateBalanceTransactionParams struct {
	UserID        int32          `json:"user_id"`
	ReservationID pgtype.Int4    `json:"reservation_id"`
	Kind          string         `json:"kind"`
	Amount        pgtype.Numeric `json:"amount"`
	BalanceAfter  pgtype.Numeric `json:"balance_after"`
}

func (q *Queries) CreateBalanceTransaction(ctx context.Context, arg CreateBalanceTransactionParams) (BalanceTransaction, error) {
	row := q.db.QueryRow(ctx, createBalanceTransaction,
		arg.UserID,
		arg.ReservationID,
		arg.Kind,
		arg.Amount,
		arg.BalanceAfter,
	)
	var i BalanceTransaction
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ReservationID,
		&i.Kind,
		&i.Amount,
		&i.BalanceAfter,
		&i.CreatedAt,
	)
	return i, err
}

const listBalanceTransactionsByUser = `-- name: ListBalanceTransactionsByUser :many
SELECT id, user_id, reservation_id, kind, amount, balance_after, created_at
FROM balance_transactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

type ListBalanceTransactionsByUserParams struct {
	UserID int32 `json:"user_id"`
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListBalanceTransactionsByUser(ctx context.Context, arg ListBalanceTransactionsByUserParams) ([]BalanceTransaction, error) {
	rows, err := q.db.Query(ctx, listBalanceTransactionsByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BalanceTransaction{}
	for rows.Next() {
		var i BalanceTransaction
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.ReservationID,
			&i.Kind,
			&i.Amount,
			&i.BalanceAfter,
			&i.CreatedAt,
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
