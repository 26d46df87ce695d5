package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type BalanceTransaction struct {
	ID            int32          `json:"id"`
	UserID        int32          `json:"user_id"`
	ReservationID pgtype.Int4    `json:"reservation_id"`
	Kind          string         `json:"kind"`
	Amount        pgtype.Numeric `json:"amount"`
	BalanceAfter  pgtype.Numeric `json:"balance_after"`
	CreatedAt     time.Time      `json:"created_at"`
}

type Cafeteria struct {
	ID        int32       `json:"id"`
	Name      string      `json:"name"`
	Address   pgtype.Text `json:"address"`
	Phone     pgtype.Text `json:"phone"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type DailyMenu struct {
	ID          int32       `json:"id"`
	CafeteriaID int32       `json:"cafeteria_id"`
	MenuDate    pgtype.Date `json:"menu_date"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type DailyMenuItem struct {
	ID           int32  `json:"id"`
	MenuID       int32  `json:"menu_id"`
	DishID       int32  `json:"dish_id"`
	Role         string `json:"role"`
	DisplayOrder int32  `json:"display_order"`
}

type Dish struct {
	ID          int32          `json:"id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    string         `json:"category"`
	IsAvailable bool           `json:"is_available"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID            int32          `json:"id"`
	ReservationID int32          `json:"reservation_id"`
	DishID        int32          `json:"dish_id"`
	Quantity      int32          `json:"quantity"`
	IsTakeaway    bool           `json:"is_takeaway"`
	AppliedPrice  pgtype.Numeric `json:"applied_price"`
}

type Reservation struct {
	ID          int32          `json:"id"`
	UserID      int32          `json:"user_id"`
	CafeteriaID int32          `json:"cafeteria_id"`
	Total       pgtype.Numeric `json:"total"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type User struct {
	ID             int32          `json:"id"`
	Email          string         `json:"email"`
	HashedPassword string         `json:"hashed_password"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Role           string         `json:"role"`
	Balance        pgtype.Numeric `json:"balance"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
