package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, email, hashed_password, first_name, last_name, role, balance, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.HashedPassword,
		&i.FirstName,
		&i.LastName,
		&i.Role,
		&i.Balance,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id int32) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users
WHERE lower(email) = lower($1) AND is_active = true
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users
ORDER BY id
LIMIT $1 OFFSET $2
`

type ListUsersParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
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

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, hashed_password, first_name, last_name, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

type CreateUserParams struct {
	Email          string `json:"email"`
	HashedPassword string `json:"hashed_password"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Role           string `json:"role"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.Email,
		arg.HashedPassword,
		arg.FirstName,
		arg.LastName,
		arg.Role,
	))
}

const updateUser = `-- name: UpdateUser :one
UPDATE users
SET email = $2, first_name = $3, last_name = $4, role = $5, is_active = $6, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserParams struct {
	ID        int32  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUser,
		arg.ID,
		arg.Email,
		arg.FirstName,
		arg.LastName,
		arg.Role,
		arg.IsActive,
	))
}

const updateUserPassword = `-- name: UpdateUserPassword :exec
UPDATE users SET hashed_password = $2, updated_at = now()
WHERE id = $1
`

type UpdateUserPasswordParams struct {
	ID             int32  `json:"id"`
	HashedPassword string `json:"hashed_password"`
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.Exec(ctx, updateUserPassword, arg.ID, arg.HashedPassword)
	return err
}

const deleteUser = `-- name: DeleteUser :execrows
DELETE FROM users
WHERE id = $1
`

func (q *Queries) DeleteUser(ctx context.Context, id int32) (int64, error) {
	result, err := q.db.Exec(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getUserBalance = `-- name: GetUserBalance :one
SELECT balance FROM users
WHERE id = $1
`

func (q *Queries) GetUserBalance(ctx context.Context, id int32) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, getUserBalance, id)
	var balance pgtype.Numeric
	err := row.Scan(&balance)
	return balance, err
}

const getUserBalanceForUpdate = `-- name: GetUserBalanceForUpdate :one
SELECT balance FROM users
WHERE id = $1
FOR UPDATE
`

// GetUserBalanceForUpdate locks the user row until the surrounding transaction
// ends, serialising concurrent balance mutations for the same user.
func (q *Queries) GetUserBalanceForUpdate(ctx context.Context, id int32) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, getUserBalanceForUpdate, id)
	var balance pgtype.Numeric
	err := row.Scan(&balance)
	return balance, err
}

const debitUserBalance = `-- name: DebitUserBalance :one
UPDATE users
SET balance = balance - $2, updated_at = now()
WHERE id = $1 AND balance >= $2
RETURNING balance
`

type DebitUserBalanceParams struct {
	ID     int32          `json:"id"`
	Amount pgtype.Numeric `json:"amount"`
}

// DebitUserBalance returns pgx.ErrNoRows when the balance is below the amount.
func (q *Queries) DebitUserBalance(ctx context.Context, arg DebitUserBalanceParams) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, debitUserBalance, arg.ID, arg.Amount)
	var balance pgtype.Numeric
	err := row.Scan(&balance)
	return balance, err
}

const creditUserBalance = `-- name: CreditUserBalance :one
UPDATE users
SET balance = balance + $2, updated_at = now()
WHERE id = $1
RETURNING balance
`

type CreditUserBalanceParams struct {
	ID     int32          `json:"id"`
	Amount pgtype.Numeric `json:"amount"`
}

func (q *Queries) CreditUserBalance(ctx context.Context, arg CreditUserBalanceParams) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, creditUserBalance, arg.ID, arg.Amount)
	var balance pgtype.Numeric
	err := row.Scan(&balance)
	return balance, err
}
