package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/cantina-pos/api/internal/money"
	"github.com/cantina-pos/api/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeInternal(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.WithError(err).WithField("path", r.URL.Path).Errorf("%s failed", op)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// writeServiceError maps a service error to its HTTP status. Only internal
// errors are logged; their cause never reaches the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch service.KindOf(err) {
	case service.KindValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case service.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case service.KindInsufficientFunds:
		body := map[string]string{"error": service.ErrInsufficientFunds.Error()}
		var funds *service.InsufficientFundsError
		if errors.As(err, &funds) {
			body["required_balance"] = funds.Required.StringFixed(money.Places)
			body["current_balance"] = funds.Available.StringFixed(money.Places)
		}
		writeJSON(w, http.StatusPaymentRequired, body)
	case service.KindConflict:
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeInternal(w, r, op, err)
	}
}

// parseID reads a positive int32 path parameter.
func parseID(r *http.Request, name string) (int32, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int32(id), true
}

// parsePagination reads limit/offset query params. Defaults: limit=50, offset=0.
// Limit is capped at 100.
func parsePagination(r *http.Request) (int32, int32, bool) {
	limit, offset := int32(50), int32(0)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		if n > 100 {
			n = 100
		}
		limit = int32(n)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = int32(n)
	}
	return limit, offset, true
}

// amount is a money field accepted as a JSON number or string. Decoding goes
// straight to a decimal; floats are never involved.
type amount struct {
	Value decimal.Decimal
	Set   bool
}

func (a *amount) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if len(b) >= 2 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	d, err := money.Parse(raw)
	if errors.Is(err, money.ErrPrecision) {
		// Sub-cent values reach the service so it can answer with its own message.
		d, err = decimal.NewFromString(raw)
	}
	if err != nil {
		return err
	}
	a.Value, a.Set = d, true
	return nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func optionalText(s *string) pgtype.Text {
	if s == nil || *s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
