package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ticketline/internal/status"
	"ticketline/models"
	"ticketline/monitoring"

	"github.com/pocketbase/pocketbase/core"
)

type RedemptionStore interface {
	InTransaction(fn func(app core.App) error) error
	FindByTicketToken(app core.App, token string) (*models.Transaction, error)
	UpdateTickets(app core.App, transactionID string, tickets models.TicketList) error
	AppendScanLog(app core.App, entry *models.RedemptionLogEntry) error
	DeleteScanLogs(app core.App, token string) error
}

// RedemptionService enforces single-use admission. A ticket flips
// Unscanned -> Scanned exactly once; a second scan is rejected without any
// mutation. Revert is the privileged inverse for correcting operator error.
type RedemptionService struct {
	store    RedemptionStore
	notifier Notifier
}

func NewRedemptionService(store RedemptionStore, notifier Notifier) *RedemptionService {
	return &RedemptionService{store: store, notifier: notifier}
}

// Redeem admits the ticket carrying token. Already-scanned tickets fail with
// ErrAlreadyScanned and leave every record untouched; that is the normal
// business outcome for a double scan, not a fault.
func (s *RedemptionService) Redeem(ctx context.Context, token string, operator models.Actor) error {
	if token == "" {
		return fmt.Errorf("%w: missing ticket token", status.ErrInvalidPayload)
	}
	if !operator.CanOperate() {
		return fmt.Errorf("%w: redemption requires operator role", status.ErrForbidden)
	}

	var transactionID string
	err := s.store.InTransaction(func(app core.App) error {
		trx, err := s.store.FindByTicketToken(app, token)
		if err != nil {
			return err
		}
		i := trx.Tickets.IndexOf(token)
		if i < 0 {
			return fmt.Errorf("%w: token %s", status.ErrTicketNotFound, token)
		}
		if trx.Tickets[i].IsScanned {
			return status.ErrAlreadyScanned
		}

		trx.Tickets[i].IsScanned = true
		if err := s.store.UpdateTickets(app, trx.ID, trx.Tickets); err != nil {
			return err
		}
		transactionID = trx.ID
		return s.store.AppendScanLog(app, &models.RedemptionLogEntry{
			Token:         token,
			TransactionID: trx.ID,
			OperatorID:    operator.ID,
			ScannedAt:     time.Now(),
		})
	})
	if err != nil {
		monitoring.TrackRedemption(redemptionResult(err))
		return err
	}

	monitoring.TrackRedemption("ok")
	slog.Info("ticket redeemed", "token", token, "transaction", transactionID, "operator", operator.ID)
	s.notifier.Publish("gate-events", map[string]any{
		"type":        "ticket_redeemed",
		"token":       token,
		"transaction": transactionID,
		"operator":    operator.ID,
	})
	return nil
}

// Revert clears the scanned flag and removes the scan log entry. Reserved
// for the highest-privilege role; it exists strictly to correct scan
// mistakes.
func (s *RedemptionService) Revert(ctx context.Context, token string, actor models.Actor) error {
	if token == "" {
		return fmt.Errorf("%w: missing ticket token", status.ErrInvalidPayload)
	}
	if !actor.IsSuperuser() {
		return fmt.Errorf("%w: revert requires superuser role", status.ErrForbidden)
	}

	err := s.store.InTransaction(func(app core.App) error {
		trx, err := s.store.FindByTicketToken(app, token)
		if err != nil {
			return err
		}
		i := trx.Tickets.IndexOf(token)
		if i < 0 {
			return fmt.Errorf("%w: token %s", status.ErrTicketNotFound, token)
		}
		if !trx.Tickets[i].IsScanned {
			return status.ErrNotScanned
		}

		trx.Tickets[i].IsScanned = false
		if err := s.store.UpdateTickets(app, trx.ID, trx.Tickets); err != nil {
			return err
		}
		return s.store.DeleteScanLogs(app, token)
	})
	if err != nil {
		return err
	}

	monitoring.TrackRedemption("reverted")
	slog.Info("ticket scan reverted", "token", token, "actor", actor.ID)
	return nil
}

func redemptionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, status.ErrAlreadyScanned):
		return "already_scanned"
	case errors.Is(err, status.ErrTicketNotFound):
		return "not_found"
	default:
		return "error"
	}
}
