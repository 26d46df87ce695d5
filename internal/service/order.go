package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/enum"
	"github.com/cantina-pos/api/internal/events"
	"github.com/cantina-pos/api/internal/money"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OrderStore defines the DB methods needed to place and cancel reservations.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	LedgerStore
	GetCafeteria(ctx context.Context, id int32) (database.Cafeteria, error)
	GetDish(ctx context.Context, id int32) (database.Dish, error)
	CreateReservation(ctx context.Context, arg database.CreateReservationParams) (database.Reservation, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetReservationForUpdate(ctx context.Context, id int32) (database.Reservation, error)
	CancelReservation(ctx context.Context, id int32) (database.Reservation, error)
	ListOrderItemsByReservation(ctx context.Context, reservationID int32) ([]database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// PlaceOrderRequest is the input for placing an order.
type PlaceOrderRequest struct {
	UserID      int32
	CafeteriaID int32
	Cart        Cart
}

// OrderResult is a reservation with its items and the owner's balance after
// the operation.
type OrderResult struct {
	Reservation database.Reservation
	Items       []database.OrderItem
	NewBalance  decimal.Decimal
}

// OrderService places and cancels reservations.
type OrderService struct {
	pool      TxBeginner
	newStore  NewOrderStore
	publisher events.Publisher
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, publisher events.Publisher) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, publisher: orNop(publisher)}
}

// pricedLine is a cart line with its price snapshot.
type pricedLine struct {
	line  CartLine
	price decimal.Decimal
}

// PlaceOrder prices the cart against the catalog and, in one transaction,
// creates the reservation and its items and debits the total.
//
// The user row is locked before the balance check and held until commit, so
// concurrent orders of the same user are serialised and cannot overspend.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
	if req.CafeteriaID <= 0 {
		return nil, ErrInvalidCafeteriaID
	}
	if err := req.Cart.Validate(); err != nil {
		return nil, err
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetCafeteria(ctx, req.CafeteriaID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCafeteriaNotFound
		}
		return nil, fmt.Errorf("get cafeteria: %w", err)
	}

	// --- Resolve dishes and snapshot prices ---
	total := decimal.Zero
	lines := make([]pricedLine, 0, len(req.Cart.Lines))
	for i, line := range req.Cart.Lines {
		dish, err := store.GetDish(ctx, line.DishID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrDishNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get dish: %w", i, err)
		}
		if !dish.IsAvailable {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrDishUnavailable)
		}

		price := money.FromNumeric(dish.Price)
		total = total.Add(price.Mul(decimal.NewFromInt32(line.Quantity)))
		lines = append(lines, pricedLine{line: line, price: price})
	}

	// --- Balance check ---
	if _, err := requireFunds(ctx, store, req.UserID, total); err != nil {
		return nil, err
	}

	// --- Insert reservation and items ---
	reservation, err := store.CreateReservation(ctx, database.CreateReservationParams{
		UserID:      req.UserID,
		CafeteriaID: req.CafeteriaID,
		Total:       money.ToNumeric(total),
		Status:      enum.ReservationStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for _, pl := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			ReservationID: reservation.ID,
			DishID:        pl.line.DishID,
			Quantity:      pl.line.Quantity,
			IsTakeaway:    pl.line.IsTakeaway,
			AppliedPrice:  money.ToNumeric(pl.price),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	// --- Debit ---
	newBalance, err := debit(ctx, store, req.UserID, reservation.ID, total)
	if err != nil {
		return nil, err
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{Reservation: reservation, Items: items, NewBalance: newBalance}
	publish(ctx, s.publisher, reservationEvent(enum.EventReservationPlaced, result))
	return result, nil
}

// CancelOrder refunds the reservation total to its owner and marks it
// cancelled, atomically. Cancelling twice fails with ErrAlreadyCancelled.
// Who may cancel is decided by the caller.
func (s *OrderService) CancelOrder(ctx context.Context, reservationID int32) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetReservationForUpdate(ctx, reservationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if current.Status == enum.ReservationStatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	newBalance, err := refund(ctx, store, current.UserID, current.ID, money.FromNumeric(current.Total))
	if err != nil {
		return nil, err
	}

	cancelled, err := store.CancelReservation(ctx, current.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyCancelled
		}
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}

	items, err := store.ListOrderItemsByReservation(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{Reservation: cancelled, Items: items, NewBalance: newBalance}
	publish(ctx, s.publisher, reservationEvent(enum.EventReservationCancelled, result))
	return result, nil
}

func reservationEvent(eventType string, r *OrderResult) events.Event {
	ev := events.New(eventType)
	ev.UserID = r.Reservation.UserID
	ev.CafeteriaID = r.Reservation.CafeteriaID
	ev.ReservationID = r.Reservation.ID
	ev.Status = r.Reservation.Status
	ev.Amount = money.Format(r.Reservation.Total)
	ev.Balance = r.NewBalance.StringFixed(2)
	for _, item := range r.Items {
		ev.Items = append(ev.Items, events.Item{
			DishID:     item.DishID,
			Quantity:   item.Quantity,
			IsTakeaway: item.IsTakeaway,
		})
	}
	return ev
}
