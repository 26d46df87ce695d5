package service

import (
	"context"

	"github.com/cantina-pos/api/internal/events"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// publish hands a committed event to the side channels. Failures are logged
// and never reach the caller.
func publish(ctx context.Context, p events.Publisher, ev events.Event) {
	if err := p.Publish(ctx, ev); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event":   ev.Type,
			"user_id": ev.UserID,
		}).Warn("publish event")
	}
}

func orNop(p events.Publisher) events.Publisher {
	if p == nil {
		return events.Nop{}
	}
	return p
}
