package services

import (
	"fmt"

	"ticketline/internal/status"
	"ticketline/models"
	"ticketline/monitoring"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// Inventory is the ledger contract consumed by the reservation, verification
// and archive flows.
type Inventory interface {
	TryDebit(app core.App, ticketTypeID string, quantity int) (int, error)
	Credit(app core.App, ticketTypeID string, quantity int) (int, error)
}

// InventoryService guards the per-ticket-type stock counters. Every mutation
// goes through a row-guarded UPDATE: the previously read stock value acts as
// the version, so two concurrent debits can never both win against the same
// counter. A lost guard surfaces as ErrWriteConflict and is retried by the
// caller, never resolved with an in-process lock.
type InventoryService struct{}

func NewInventoryService() *InventoryService {
	return &InventoryService{}
}

// TryDebit atomically subtracts quantity from the ticket type's stock,
// flipping its status to soldout at zero. Fails with ErrNotEnoughStock when
// quantity exceeds the current stock or the type is disabled.
func (s *InventoryService) TryDebit(app core.App, ticketTypeID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: debit quantity must be positive", status.ErrInvalidPayload)
	}

	current, st, err := s.read(app, ticketTypeID)
	if err != nil {
		return 0, err
	}
	if st == models.TicketTypeUnavailable {
		return 0, fmt.Errorf("%w: ticket type %s is unavailable", status.ErrNotEnoughStock, ticketTypeID)
	}
	if quantity > current {
		return 0, fmt.Errorf("%w: requested %d, available %d", status.ErrNotEnoughStock, quantity, current)
	}

	newStock := current - quantity
	if err := s.guardedUpdate(app, ticketTypeID, current, newStock, models.StatusForStock(newStock)); err != nil {
		return 0, err
	}
	monitoring.TrackStockDebit(quantity)
	return newStock, nil
}

// Credit atomically adds quantity back to the ticket type's stock, flipping
// soldout back to available when it leaves zero. The unavailable admin
// override is preserved.
func (s *InventoryService) Credit(app core.App, ticketTypeID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: credit quantity must be positive", status.ErrInvalidPayload)
	}

	current, st, err := s.read(app, ticketTypeID)
	if err != nil {
		return 0, err
	}

	newStock := current + quantity
	newStatus := models.StatusForStock(newStock)
	if st == models.TicketTypeUnavailable {
		newStatus = models.TicketTypeUnavailable
	}
	if err := s.guardedUpdate(app, ticketTypeID, current, newStock, newStatus); err != nil {
		return 0, err
	}
	monitoring.TrackStockCredit(quantity)
	return newStock, nil
}

func (s *InventoryService) read(app core.App, ticketTypeID string) (int, models.TicketTypeStatus, error) {
	rec, err := app.FindRecordById("tickets", ticketTypeID)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketTypeID)
	}
	return rec.GetInt("stock"), models.TicketTypeStatus(rec.GetString("status")), nil
}

// guardedUpdate writes the new stock only if the row still carries the stock
// value we read. Zero rows affected means a concurrent writer got there
// first.
func (s *InventoryService) guardedUpdate(app core.App, ticketTypeID string, readStock, newStock int, newStatus models.TicketTypeStatus) error {
	res, err := app.DB().NewQuery(`
		UPDATE tickets
		SET stock = {:new}, status = {:status}
		WHERE id = {:id} AND stock = {:read}
	`).Bind(dbx.Params{
		"new":    newStock,
		"status": string(newStatus),
		"id":     ticketTypeID,
		"read":   readStock,
	}).Execute()
	if err != nil {
		return fmt.Errorf("could not update stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		monitoring.TrackWriteConflict()
		return fmt.Errorf("%w: ticket type %s", status.ErrWriteConflict, ticketTypeID)
	}
	return nil
}
