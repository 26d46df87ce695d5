package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	ReservationStatusPending   = "pending"
	ReservationStatusCompleted = "completed"
	ReservationStatusCancelled = "cancelled"
)

const (
	BalanceKindTopUp      = "top_up"
	BalanceKindOrderDebit = "order_debit"
	BalanceKindRefund     = "refund"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleStudent = "student"
	UserRoleStaff   = "staff"
	UserRoleAdmin   = "admin"
)

// Dish categories double as daily menu item roles.
const (
	DishCategorySoup    = "soup"
	DishCategoryMain    = "main"
	DishCategorySide    = "side"
	DishCategoryDrink   = "drink"
	DishCategoryDessert = "dessert"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	EventReservationPlaced    = "reservation.placed"
	EventReservationCancelled = "reservation.cancelled"
	EventBalanceToppedUp      = "balance.topped_up"
)

func IsValidUserRole(s string) bool {
	switch s {
	case UserRoleStudent, UserRoleStaff, UserRoleAdmin:
		return true
	}
	return false
}

func IsValidDishCategory(s string) bool {
	switch s {
	case DishCategorySoup, DishCategoryMain, DishCategorySide,
		DishCategoryDrink, DishCategoryDessert:
		return true
	}
	return false
}

func IsValidReservationStatus(s string) bool {
	switch s {
	case ReservationStatusPending, ReservationStatusCompleted, ReservationStatusCancelled:
		return true
	}
	return false
}
