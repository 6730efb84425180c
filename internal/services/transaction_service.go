package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ticketline/config"
	"ticketline/internal/status"
	"ticketline/models"

	"github.com/pocketbase/pocketbase/core"
)

type TransactionStore interface {
	InTransaction(fn func(app core.App) error) error
	FindTransaction(app core.App, id string) (*models.Transaction, error)
	UpdateTransaction(app core.App, trx *models.Transaction) error
	ListByUser(app core.App, userID string, limit int) ([]*models.Transaction, error)
	ListExpiredPending(app core.App, now time.Time) ([]*models.Transaction, error)
}

// TransactionService owns the purchase record lifecycle after reservation:
// manual verification of uploaded payment proofs, buyer history, and the
// expiry sweep for stale holds. Rejected and expired holds credit their
// stock back to the ledger, so every terminal non-paid outcome returns its
// inventory.
type TransactionService struct {
	store     TransactionStore
	inventory Inventory

	sweepInterval time.Duration
}

func NewTransactionService(store TransactionStore, inventory Inventory, cfg *config.Config) *TransactionService {
	return &TransactionService{
		store:         store,
		inventory:     inventory,
		sweepInterval: cfg.SweepInterval,
	}
}

// Verify resolves a pending transaction to paid or reject. Any other current
// status is an illegal transition.
func (s *TransactionService) Verify(ctx context.Context, req models.VerifyRequest) (*models.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out *models.Transaction
	err := s.store.InTransaction(func(app core.App) error {
		trx, err := s.store.FindTransaction(app, req.TransactionID)
		if err != nil {
			return err
		}
		if !trx.Status.CanTransition(req.Outcome) {
			return fmt.Errorf("%w: %s -> %s", status.ErrInvalidTransactionStatus, trx.Status, req.Outcome)
		}

		trx.Status = req.Outcome
		trx.VerifiedBy = req.Actor.ID
		trx.VerifiedAt = time.Now()
		if err := s.store.UpdateTransaction(app, trx); err != nil {
			return err
		}

		if req.Outcome == models.TransactionReject {
			if err := s.creditTickets(app, trx.Tickets); err != nil {
				return err
			}
		}
		out = trx
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transaction verified",
		"transaction", out.ID, "outcome", out.Status, "verified_by", req.Actor.ID)
	return out, nil
}

// AttachPaymentProof stores the uploaded proof reference on a pending
// transaction owned by the actor.
func (s *TransactionService) AttachPaymentProof(ctx context.Context, transactionID, proofRef string, actor models.Actor) error {
	if proofRef == "" {
		return fmt.Errorf("%w: missing payment proof reference", status.ErrInvalidPayload)
	}
	return s.store.InTransaction(func(app core.App) error {
		trx, err := s.store.FindTransaction(app, transactionID)
		if err != nil {
			return err
		}
		if trx.UserID != actor.ID && !actor.CanOperate() {
			return status.ErrForbidden
		}
		if trx.Status != models.TransactionPending {
			return fmt.Errorf("%w: proof only attaches to pending transactions", status.ErrInvalidTransactionStatus)
		}
		trx.PaymentProof = proofRef
		return s.store.UpdateTransaction(app, trx)
	})
}

// History lists the actor's purchases, newest first.
func (s *TransactionService) History(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []*models.Transaction
	err := s.store.InTransaction(func(app core.App) error {
		var err error
		out, err = s.store.ListByUser(app, userID, limit)
		return err
	})
	return out, err
}

// RunExpirySweep periodically expires stale pending holds until ctx is
// cancelled.
func (s *TransactionService) RunExpirySweep(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.SweepExpired(ctx, time.Now()); err != nil {
				slog.Error("expiry sweep failed", "error", err)
			} else if n > 0 {
				slog.Info("expired stale holds", "count", n)
			}
		}
	}
}

// SweepExpired transitions every pending transaction whose hold window has
// passed to expired, crediting its stock back. Each transaction is its own
// unit of work so one bad record cannot wedge the sweep.
func (s *TransactionService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	var stale []*models.Transaction
	err := s.store.InTransaction(func(app core.App) error {
		var err error
		stale, err = s.store.ListExpiredPending(app, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range stale {
		err := s.store.InTransaction(func(app core.App) error {
			trx, err := s.store.FindTransaction(app, candidate.ID)
			if err != nil {
				return err
			}
			// Re-check inside the unit: a verifier may have won the race.
			if trx.Status != models.TransactionPending || trx.ExpiresAt.After(now) {
				return nil
			}
			trx.Status = models.TransactionExpired
			if err := s.store.UpdateTransaction(app, trx); err != nil {
				return err
			}
			if err := s.creditTickets(app, trx.Tickets); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			slog.Error("could not expire transaction", "transaction", candidate.ID, "error", err)
		}
	}
	return expired, nil
}

func (s *TransactionService) creditTickets(app core.App, tickets models.TicketList) error {
	for typeID, count := range tickets.CountByType() {
		if _, err := s.inventory.Credit(app, typeID, count); err != nil {
			return err
		}
	}
	return nil
}
