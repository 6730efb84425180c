package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ticketline/internal/status"
	"ticketline/models"

	"github.com/pocketbase/pocketbase/core"
)

type ArchiveStore interface {
	InTransaction(fn func(app core.App) error) error
	FindTransaction(app core.App, id string) (*models.Transaction, error)
	CreateTransaction(app core.App, trx *models.Transaction) error
	DeleteTransaction(app core.App, id string) error
	CreateArchived(app core.App, arch *models.ArchivedTransaction) error
	FindArchived(app core.App, id string) (*models.ArchivedTransaction, error)
	DeleteArchived(app core.App, id string) error
	SetArchivedStatus(app core.App, id string, st models.TransactionStatus) error
	AppendToHistory(app core.App, userID, transactionID string) error
}

// ArchiveService moves transactions between the active ledger and the
// archive. Every operation is one unit of work: a transaction exists in
// exactly one of the two stores at any observable moment, and stock is
// rebalanced one unit per ticket in the same unit.
type ArchiveService struct {
	store     ArchiveStore
	inventory Inventory
}

func NewArchiveService(store ArchiveStore, inventory Inventory) *ArchiveService {
	return &ArchiveService{store: store, inventory: inventory}
}

// Archive copies the transaction into the archive with a back-reference,
// credits its stock back, and removes it from the active ledger. Rejected
// and expired transactions already returned their stock when they resolved,
// so archiving them moves no inventory.
func (s *ArchiveService) Archive(ctx context.Context, transactionID string, actor models.Actor) (*models.ArchivedTransaction, error) {
	if !actor.CanOperate() {
		return nil, fmt.Errorf("%w: archive requires operator role", status.ErrForbidden)
	}

	var arch models.ArchivedTransaction
	err := s.store.InTransaction(func(app core.App) error {
		trx, err := s.store.FindTransaction(app, transactionID)
		if err != nil {
			return err
		}

		arch = models.NewArchived(*trx, time.Now())
		if err := s.store.CreateArchived(app, &arch); err != nil {
			return err
		}
		if trx.Status.HoldsStock() {
			if err := s.creditTickets(app, trx.Tickets); err != nil {
				return err
			}
		}
		return s.store.DeleteTransaction(app, transactionID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transaction archived",
		"transaction", transactionID, "archived", arch.ID, "actor", actor.ID)
	return &arch, nil
}

// Restore re-creates an active transaction from the archive, debiting its
// stock again when the restored status holds stock, and removes the archive
// entry. Fails whole with ErrNotEnoughStock if the inventory cannot cover
// the restored tickets.
func (s *ArchiveService) Restore(ctx context.Context, archivedID string, actor models.Actor) (*models.Transaction, error) {
	if !actor.CanOperate() {
		return nil, fmt.Errorf("%w: restore requires operator role", status.ErrForbidden)
	}

	var restored *models.Transaction
	err := s.store.InTransaction(func(app core.App) error {
		var err error
		restored, err = s.restoreInUnit(app, archivedID, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transaction restored",
		"archived", archivedID, "transaction", restored.ID, "actor", actor.ID)
	return restored, nil
}

// UpdateArchivedStatus overrides the status recorded on an archive entry.
// Setting paid additionally performs the restore in the same unit of work.
func (s *ArchiveService) UpdateArchivedStatus(ctx context.Context, archivedID string, st models.TransactionStatus, actor models.Actor) error {
	if !actor.IsSuperuser() {
		return fmt.Errorf("%w: archived status override requires superuser role", status.ErrForbidden)
	}
	switch st {
	case models.TransactionPending, models.TransactionPaid, models.TransactionReject, models.TransactionExpired:
	default:
		return fmt.Errorf("%w: unknown status %q", status.ErrInvalidPayload, st)
	}

	if st == models.TransactionPaid {
		err := s.store.InTransaction(func(app core.App) error {
			_, err := s.restoreInUnit(app, archivedID, models.TransactionPaid)
			return err
		})
		if err != nil {
			return err
		}
		slog.Info("archived transaction reinstated as paid", "archived", archivedID, "actor", actor.ID)
		return nil
	}

	return s.store.InTransaction(func(app core.App) error {
		return s.store.SetArchivedStatus(app, archivedID, st)
	})
}

// restoreInUnit performs the restore steps against an already-open unit of
// work, optionally overriding the restored status. Stock is debited only
// when the restored transaction will actually hold it.
func (s *ArchiveService) restoreInUnit(app core.App, archivedID string, override models.TransactionStatus) (*models.Transaction, error) {
	arch, err := s.store.FindArchived(app, archivedID)
	if err != nil {
		return nil, err
	}

	restored := arch.Status
	if override != "" {
		restored = override
	}
	if restored.HoldsStock() {
		for typeID, count := range arch.Tickets.CountByType() {
			if _, err := s.inventory.TryDebit(app, typeID, count); err != nil {
				return nil, err
			}
		}
	}

	trx := arch.Transaction
	trx.ID = ""
	trx.Status = restored
	if err := s.store.CreateTransaction(app, &trx); err != nil {
		return nil, err
	}
	if err := s.store.AppendToHistory(app, trx.UserID, trx.ID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteArchived(app, archivedID); err != nil {
		return nil, err
	}
	return &trx, nil
}

func (s *ArchiveService) creditTickets(app core.App, tickets models.TicketList) error {
	for typeID, count := range tickets.CountByType() {
		if _, err := s.inventory.Credit(app, typeID, count); err != nil {
			return err
		}
	}
	return nil
}
