package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/middleware"
	"github.com/cantina-pos/api/internal/money"
	"github.com/cantina-pos/api/internal/service"
)

// BalanceServicer credits user balances. Satisfied by *service.BalanceService.
type BalanceServicer interface {
	TopUp(ctx context.Context, userID int32, amount decimal.Decimal) (*service.TopUpResult, error)
}

// BalanceStore defines the database reads needed by balance handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type BalanceStore interface {
	GetUserBalance(ctx context.Context, id int32) (pgtype.Numeric, error)
	ListBalanceTransactionsByUser(ctx context.Context, arg database.ListBalanceTransactionsByUserParams) ([]database.BalanceTransaction, error)
}

// BalanceHandler handles the signed-in user's balance endpoints.
type BalanceHandler struct {
	service BalanceServicer
	store   BalanceStore
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(svc BalanceServicer, store BalanceStore) *BalanceHandler {
	return &BalanceHandler{service: svc, store: store}
}

// RegisterRoutes registers the read endpoints under /user/balance. TopUp is
// left to the caller so it can be rate limited.
func (h *BalanceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/user/balance", h.Get)
	r.Get("/user/balance/history", h.History)
}

// --- Request / Response types ---

type topUpRequest struct {
	Amount amount `json:"amount"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

type topUpResponse struct {
	NewBalance string `json:"new_balance"`
}

type balanceTransactionResponse struct {
	ID            int32     `json:"id"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	BalanceAfter  string    `json:"balance_after"`
	ReservationID *int32    `json:"reservation_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func toBalanceTransactionResponse(t database.BalanceTransaction) balanceTransactionResponse {
	resp := balanceTransactionResponse{
		ID:           t.ID,
		Kind:         t.Kind,
		Amount:       money.Format(t.Amount),
		BalanceAfter: money.Format(t.BalanceAfter),
		CreatedAt:    t.CreatedAt,
	}
	if t.ReservationID.Valid {
		id := t.ReservationID.Int32
		resp.ReservationID = &id
	}
	return resp
}

// --- Handlers ---

// TopUp handles POST /user/balance.
func (h *BalanceHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.TopUp(r.Context(), claims.UserID, req.Amount.Value)
	if err != nil {
		writeServiceError(w, r, "top up", err)
		return
	}

	writeJSON(w, http.StatusOK, topUpResponse{NewBalance: formatBalance(result.NewBalance)})
}

// Get handles GET /user/balance.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	balance, err := h.store.GetUserBalance(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, service.ErrUserNotFound.Error())
			return
		}
		writeInternal(w, r, "get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{Balance: money.Format(balance)})
}

// History handles GET /user/balance/history, newest first.
func (h *BalanceHandler) History(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset, ok := parsePagination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pagination")
		return
	}

	txs, err := h.store.ListBalanceTransactionsByUser(r.Context(), database.ListBalanceTransactionsByUserParams{
		UserID: claims.UserID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeInternal(w, r, "list balance history", err)
		return
	}

	resp := make([]balanceTransactionResponse, len(txs))
	for i, t := range txs {
		resp[i] = toBalanceTransactionResponse(t)
	}

	writeJSON(w, http.StatusOK, resp)
}
