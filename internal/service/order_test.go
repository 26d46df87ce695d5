package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/enum"
	"github.com/cantina-pos/api/internal/money"
	"github.com/shopspring/decimal"
)

// --- Test helpers ---

const (
	testUserID      int32 = 1
	testCafeteriaID int32 = 10
	testSoupID      int32 = 20
	testMainID      int32 = 21
)

func newOrderTestEnv(balance string) (*memDB, *memPool, *OrderService) {
	db := newMemDB()
	db.addUser(testUserID, balance)
	db.addCafeteria(testCafeteriaID, "North Hall")
	db.addDish(testSoupID, "Soup", "5.50")
	db.addDish(testMainID, "Schnitzel", "7.25")

	pool := &memPool{db: db}
	svc := NewOrderService(pool, func(database.DBTX) OrderStore { return db }, nil)
	return db, pool, svc
}

func cartOf(lines ...CartLine) Cart {
	return Cart{Lines: lines}
}

// --- Place order ---

func TestPlaceOrder_DebitsTotalAndSnapshotsPrices(t *testing.T) {
	db, pool, svc := newOrderTestEnv("20.00")

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 2}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := money.Format(result.Reservation.Total); got != "11.00" {
		t.Errorf("total: got %s, want 11.00", got)
	}
	if got := result.NewBalance.StringFixed(2); got != "9.00" {
		t.Errorf("new balance: got %s, want 9.00", got)
	}
	if got := db.balance(testUserID); got != "9.00" {
		t.Errorf("stored balance: got %s, want 9.00", got)
	}
	if result.Reservation.Status != enum.ReservationStatusPending {
		t.Errorf("status: got %q, want pending", result.Reservation.Status)
	}
	if len(result.Items) != 1 || money.Format(result.Items[0].AppliedPrice) != "5.50" {
		t.Fatalf("items: got %+v", result.Items)
	}
	if !pool.last.committed {
		t.Error("expected commit")
	}

	if len(db.journal) != 1 {
		t.Fatalf("journal entries: got %d, want 1", len(db.journal))
	}
	entry := db.journal[0]
	if entry.Kind != enum.BalanceKindOrderDebit || money.Format(entry.BalanceAfter) != "9.00" {
		t.Errorf("journal entry: got kind=%s after=%s", entry.Kind, money.Format(entry.BalanceAfter))
	}
	if !entry.ReservationID.Valid || entry.ReservationID.Int32 != result.Reservation.ID {
		t.Errorf("journal reservation: got %+v, want %d", entry.ReservationID, result.Reservation.ID)
	}
}

func TestPlaceOrder_TotalIsSumOfAppliedPrices(t *testing.T) {
	_, _, svc := newOrderTestEnv("100.00")

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart: cartOf(
			CartLine{DishID: testSoupID, Quantity: 1},
			CartLine{DishID: testMainID, Quantity: 3, IsTakeaway: true},
			CartLine{DishID: testSoupID, Quantity: 2, IsTakeaway: true},
		),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := decimal.Zero
	for _, item := range result.Items {
		sum = sum.Add(money.FromNumeric(item.AppliedPrice).Mul(decimal.NewFromInt32(item.Quantity)))
	}
	if !sum.Equal(money.FromNumeric(result.Reservation.Total)) {
		t.Errorf("total %s != sum of items %s", money.Format(result.Reservation.Total), sum.StringFixed(2))
	}
	if got := money.Format(result.Reservation.Total); got != "38.25" {
		t.Errorf("total: got %s, want 38.25", got)
	}
	if len(result.Items) != 3 {
		t.Fatalf("items: got %d, want 3 (lines are not merged)", len(result.Items))
	}
	if !result.Items[1].IsTakeaway || result.Items[0].IsTakeaway {
		t.Error("takeaway flags not kept per line")
	}
}

func TestPlaceOrder_InsufficientFunds(t *testing.T) {
	db, _, svc := newOrderTestEnv("3.00")

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 1}),
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	var funds *InsufficientFundsError
	if !errors.As(err, &funds) {
		t.Fatalf("expected *InsufficientFundsError, got %T", err)
	}
	if funds.Required.StringFixed(2) != "5.50" || funds.Available.StringFixed(2) != "3.00" {
		t.Errorf("amounts: got required=%s available=%s", funds.Required, funds.Available)
	}
	if KindOf(err) != KindInsufficientFunds {
		t.Errorf("kind: got %s", KindOf(err))
	}
	if got := db.balance(testUserID); got != "3.00" {
		t.Errorf("balance changed: got %s", got)
	}
	if len(db.reservations) != 0 {
		t.Errorf("reservations: got %d, want 0", len(db.reservations))
	}
}

func TestPlaceOrder_ExactBalanceSucceeds(t *testing.T) {
	db, _, svc := newOrderTestEnv("5.50")

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 1}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NewBalance.IsZero() || db.balance(testUserID) != "0.00" {
		t.Errorf("balance: got %s", result.NewBalance)
	}
}

func TestPlaceOrder_UnknownDishAbortsWholeOrder(t *testing.T) {
	db, _, svc := newOrderTestEnv("50.00")

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart: cartOf(
			CartLine{DishID: testSoupID, Quantity: 1},
			CartLine{DishID: 999, Quantity: 1},
		),
	})
	if !errors.Is(err, ErrDishNotFound) {
		t.Fatalf("expected ErrDishNotFound, got %v", err)
	}
	if err.Error() != "items[1]: dish not found" {
		t.Errorf("message: got %q", err.Error())
	}
	if len(db.reservations) != 0 || len(db.orderItems) != 0 {
		t.Error("nothing should be persisted")
	}
	if got := db.balance(testUserID); got != "50.00" {
		t.Errorf("balance changed: got %s", got)
	}
}

func TestPlaceOrder_UnavailableDish(t *testing.T) {
	db, _, svc := newOrderTestEnv("50.00")
	d := db.dishes[testMainID]
	d.IsAvailable = false
	db.dishes[testMainID] = d

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testMainID, Quantity: 1}),
	})
	if !errors.Is(err, ErrDishUnavailable) {
		t.Fatalf("expected ErrDishUnavailable, got %v", err)
	}
}

func TestPlaceOrder_UnknownCafeteria(t *testing.T) {
	_, _, svc := newOrderTestEnv("50.00")

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: 77,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 1}),
	})
	if !errors.Is(err, ErrCafeteriaNotFound) {
		t.Fatalf("expected ErrCafeteriaNotFound, got %v", err)
	}
}

func TestPlaceOrder_UnknownUser(t *testing.T) {
	_, _, svc := newOrderTestEnv("50.00")

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      404,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 1}),
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPlaceOrder_ValidationHappensBeforeTransaction(t *testing.T) {
	tests := []struct {
		name string
		req  PlaceOrderRequest
		want error
	}{
		{"empty cart", PlaceOrderRequest{UserID: testUserID, CafeteriaID: testCafeteriaID}, ErrEmptyCart},
		{"zero quantity", PlaceOrderRequest{UserID: testUserID, CafeteriaID: testCafeteriaID, Cart: cartOf(CartLine{DishID: testSoupID})}, ErrInvalidQuantity},
		{"bad dish id", PlaceOrderRequest{UserID: testUserID, CafeteriaID: testCafeteriaID, Cart: cartOf(CartLine{DishID: -1, Quantity: 1})}, ErrInvalidDishID},
		{"bad cafeteria id", PlaceOrderRequest{UserID: testUserID, Cart: cartOf(CartLine{DishID: testSoupID, Quantity: 1})}, ErrInvalidCafeteriaID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, pool, svc := newOrderTestEnv("50.00")
			_, err := svc.PlaceOrder(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if KindOf(err) != KindValidation {
				t.Errorf("kind: got %s, want validation", KindOf(err))
			}
			if pool.begins != 0 {
				t.Errorf("transaction started %d times, want 0", pool.begins)
			}
		})
	}
}

func TestPlaceOrder_FailureMidTransactionRollsBack(t *testing.T) {
	for _, op := range []string{"CreateOrderItem", "DebitUserBalance", "CreateBalanceTransaction"} {
		t.Run(op, func(t *testing.T) {
			db, pool, svc := newOrderTestEnv("50.00")
			db.failOn[op] = errors.New("connection reset")

			_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
				UserID:      testUserID,
				CafeteriaID: testCafeteriaID,
				Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 1}),
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if KindOf(err) != KindInternal {
				t.Errorf("kind: got %s, want internal", KindOf(err))
			}
			if pool.last.committed {
				t.Error("must not commit")
			}
			if db.rollbacks != 1 {
				t.Errorf("rollbacks: got %d, want 1", db.rollbacks)
			}
			if len(db.reservations) != 0 || len(db.orderItems) != 0 || len(db.journal) != 0 {
				t.Error("partial writes survived the rollback")
			}
			if got := db.balance(testUserID); got != "50.00" {
				t.Errorf("balance: got %s, want 50.00", got)
			}
		})
	}
}

func TestPlaceOrder_CommitFailure(t *testing.T) {
	db, pool, svc := newOrderTestEnv("50.00")
	pool.commitErr = errors.New("serialization failure")

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 1}),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := db.balance(testUserID); got != "50.00" {
		t.Errorf("balance: got %s, want 50.00", got)
	}
}

func TestPlaceOrder_BeginError(t *testing.T) {
	_, pool, svc := newOrderTestEnv("50.00")
	pool.beginErr = errors.New("pool closed")

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 1}),
	})
	if err == nil || KindOf(err) != KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestPlaceOrder_PriceChangeDoesNotAffectPlacedOrder(t *testing.T) {
	db, _, svc := newOrderTestEnv("50.00")
	ctx := context.Background()

	placed, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 1}),
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	d := db.dishes[testSoupID]
	d.Price = money.ToNumeric(money.MustParse("9.99"))
	db.dishes[testSoupID] = d

	cancelled, err := svc.CancelOrder(ctx, placed.Reservation.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := money.Format(cancelled.Items[0].AppliedPrice); got != "5.50" {
		t.Errorf("applied price: got %s, want 5.50", got)
	}
	if got := db.balance(testUserID); got != "50.00" {
		t.Errorf("refund used the new price: balance %s", got)
	}
}

func TestPlaceOrder_PublishesAfterCommit(t *testing.T) {
	db := newMemDB()
	db.addUser(testUserID, "20.00")
	db.addCafeteria(testCafeteriaID, "North Hall")
	db.addDish(testSoupID, "Soup", "5.50")
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewOrderService(&memPool{db: db}, func(database.DBTX) OrderStore { return db }, pub)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 2, IsTakeaway: true}),
	})
	if err != nil {
		t.Fatalf("publish failure must not fail the order: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("events: got %d, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Type != enum.EventReservationPlaced || ev.ReservationID != result.Reservation.ID {
		t.Errorf("event: got %+v", ev)
	}
	if ev.Amount != "11.00" || ev.Balance != "9.00" || ev.CafeteriaID != testCafeteriaID {
		t.Errorf("event amounts: got amount=%s balance=%s", ev.Amount, ev.Balance)
	}
	if len(ev.Items) != 1 || ev.Items[0].Quantity != 2 || !ev.Items[0].IsTakeaway {
		t.Errorf("event items: got %+v", ev.Items)
	}
}

// --- Cancel order ---

func TestCancelOrder_RestoresBalance(t *testing.T) {
	db, _, svc := newOrderTestEnv("20.00")
	ctx := context.Background()

	placed, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 2}),
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	result, err := svc.CancelOrder(ctx, placed.Reservation.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.Reservation.Status != enum.ReservationStatusCancelled {
		t.Errorf("status: got %q, want cancelled", result.Reservation.Status)
	}
	if got := result.NewBalance.StringFixed(2); got != "20.00" {
		t.Errorf("new balance: got %s, want 20.00", got)
	}
	if got := db.balance(testUserID); got != "20.00" {
		t.Errorf("stored balance: got %s, want 20.00", got)
	}

	if len(db.journal) != 2 || db.journal[1].Kind != enum.BalanceKindRefund {
		t.Fatalf("journal: got %+v", db.journal)
	}
	if money.Format(db.journal[1].Amount) != "11.00" {
		t.Errorf("refund amount: got %s", money.Format(db.journal[1].Amount))
	}
}

func TestCancelOrder_Twice(t *testing.T) {
	db, _, svc := newOrderTestEnv("20.00")
	ctx := context.Background()

	placed, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 1}),
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := svc.CancelOrder(ctx, placed.Reservation.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}

	_, err = svc.CancelOrder(ctx, placed.Reservation.ID)
	if !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
	if KindOf(err) != KindConflict {
		t.Errorf("kind: got %s, want conflict", KindOf(err))
	}
	if got := db.balance(testUserID); got != "20.00" {
		t.Errorf("refunded twice: balance %s", got)
	}
}

func TestCancelOrder_CompletedIsCancellable(t *testing.T) {
	db, _, svc := newOrderTestEnv("0.00")
	db.reservations[500] = database.Reservation{
		ID:          500,
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Total:       money.ToNumeric(money.MustParse("4.00")),
		Status:      enum.ReservationStatusCompleted,
	}

	result, err := svc.CancelOrder(context.Background(), 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewBalance.StringFixed(2) != "4.00" {
		t.Errorf("new balance: got %s, want 4.00", result.NewBalance.StringFixed(2))
	}
}

func TestCancelOrder_NotFound(t *testing.T) {
	_, _, svc := newOrderTestEnv("20.00")

	_, err := svc.CancelOrder(context.Background(), 12345)
	if !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestCancelOrder_FailureKeepsReservationActive(t *testing.T) {
	db, _, svc := newOrderTestEnv("20.00")
	ctx := context.Background()

	placed, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 1}),
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	db.failOn["CancelReservation"] = errors.New("lock timeout")
	if _, err := svc.CancelOrder(ctx, placed.Reservation.ID); err == nil {
		t.Fatal("expected error")
	}
	if got := db.reservations[placed.Reservation.ID].Status; got != enum.ReservationStatusPending {
		t.Errorf("status: got %q, want pending", got)
	}
	if got := db.balance(testUserID); got != "14.50" {
		t.Errorf("refund survived the rollback: balance %s", got)
	}
}

func TestBalanceNeverNegativeAcrossOrders(t *testing.T) {
	db, _, svc := newOrderTestEnv("12.00")
	ctx := context.Background()

	req := PlaceOrderRequest{
		UserID:      testUserID,
		CafeteriaID: testCafeteriaID,
		Cart:        cartOf(CartLine{DishID: testSoupID, Quantity: 1}),
	}
	placed := 0
	for i := 0; i < 5; i++ {
		_, err := svc.PlaceOrder(ctx, req)
		switch {
		case err == nil:
			placed++
		case errors.Is(err, ErrInsufficientFunds):
		default:
			t.Fatalf("order %d: %v", i, err)
		}
		if money.FromNumeric(db.users[testUserID].Balance).IsNegative() {
			t.Fatalf("balance went negative after order %d", i)
		}
	}
	if placed != 2 {
		t.Errorf("placed: got %d, want 2", placed)
	}
	if got := db.balance(testUserID); got != "1.00" {
		t.Errorf("balance: got %s, want 1.00", got)
	}
}
