package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ticketline/config"
	"ticketline/internal/services/renderer"
	"ticketline/internal/status"
	"ticketline/models"
	"ticketline/monitoring"
	"ticketline/utils"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// ReservationStore is the slice of the record store the coordinator needs.
type ReservationStore interface {
	InTransaction(fn func(app core.App) error) error
	TicketType(app core.App, id string) (*models.TicketType, error)
	Event(app core.App, id string) (*models.Event, error)
	CreateTransaction(app core.App, trx *models.Transaction) error
	FindTransaction(app core.App, id string) (*models.Transaction, error)
	UpdateTickets(app core.App, transactionID string, tickets models.TicketList) error
	AppendToHistory(app core.App, userID, transactionID string) error
}

// ReservationService orchestrates the multi-step atomic purchase: validate,
// debit stock, mint tickets, persist the pending transaction and link the
// buyer, all inside one unit of work. A lost stock guard aborts the whole
// attempt and the bounded retry loop runs it again from scratch; that loop is
// the only thing standing between concurrent buyers and oversold stock, and
// it needs no global lock.
type ReservationService struct {
	store     ReservationStore
	inventory Inventory
	minter    TokenMinter
	renderer  renderer.Renderer
	notifier  Notifier

	holdWindow time.Duration
	retries    int
	backoff    time.Duration
}

func NewReservationService(store ReservationStore, inventory Inventory, minter TokenMinter, rend renderer.Renderer, notifier Notifier, cfg *config.Config) *ReservationService {
	return &ReservationService{
		store:      store,
		inventory:  inventory,
		minter:     minter,
		renderer:   rend,
		notifier:   notifier,
		holdWindow: cfg.HoldWindow,
		retries:    cfg.ReserveRetries,
		backoff:    cfg.ReserveBackoff,
	}
}

// Purchase runs one reservation. Both the buyer-initiated and the
// operator-on-behalf variants come through here; they differ only in buyer
// attribution and template selection, which the request already resolved.
func (s *ReservationService) Purchase(ctx context.Context, req models.PurchaseRequest) (*models.Transaction, error) {
	if err := req.Validate(); err != nil {
		monitoring.TrackReservation("invalid")
		return nil, err
	}
	buyer := req.BuyerID()

	var trx *models.Transaction
	var renderReqs []renderer.RenderRequest

	err := withRetry(ctx, s.retries, s.backoff, func() error {
		// Each attempt starts clean; a conflicted attempt left nothing
		// behind in the store.
		trx = nil
		renderReqs = renderReqs[:0]
		return s.store.InTransaction(func(app core.App) error {
			total := decimal.Zero
			var tickets models.TicketList

			for _, line := range req.Lines {
				tt, err := s.store.TicketType(app, line.TicketTypeID)
				if err != nil {
					return err
				}
				// A failed debit rolls back every earlier debit of this
				// attempt together with it.
				if _, err := s.inventory.TryDebit(app, tt.ID, line.Quantity); err != nil {
					return err
				}

				ev, err := s.store.Event(app, tt.EventID)
				if err != nil {
					return err
				}
				templateRef := ev.Template(req.TemplateKey)

				for i := 0; i < line.Quantity; i++ {
					t := s.minter.Mint(tt.ID)
					tickets = append(tickets, t)
					renderReqs = append(renderReqs, renderer.RenderRequest{
						Token:       t.Token,
						EventName:   ev.Name,
						Category:    tt.Name,
						TemplateRef: templateRef,
					})
				}
				total = total.Add(tt.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			}

			if total.Sign() <= 0 {
				return fmt.Errorf("%w: total price must be positive", status.ErrInvalidPayload)
			}

			code, err := utils.GenerateCode(6)
			if err != nil {
				return err
			}
			trx = &models.Transaction{
				Code:        code,
				UserID:      buyer,
				Tickets:     tickets,
				TotalTicket: len(tickets),
				TotalPrice:  total,
				Status:      models.TransactionPending,
				Method:      req.Method,
				ExpiresAt:   time.Now().Add(s.holdWindow),
			}
			if err := s.store.CreateTransaction(app, trx); err != nil {
				return err
			}
			return s.store.AppendToHistory(app, buyer, trx.ID)
		})
	})
	if err != nil {
		monitoring.TrackReservation(reservationOutcome(err))
		return nil, err
	}

	monitoring.TrackReservation("committed")
	monitoring.TrackTicketsIssued(trx.TotalTicket)
	slog.Info("purchase committed",
		"transaction", trx.ID, "buyer", buyer, "tickets", trx.TotalTicket, "actor", req.Actor.ID)

	// Rendering is deferred past the commit so a rolled-back attempt never
	// leaves orphaned artifacts. A renderer failure is not a purchase
	// failure.
	s.backfillArtifacts(ctx, trx, renderReqs)

	s.notifier.Publish("user-"+buyer, map[string]any{
		"type":         "purchase_confirmed",
		"transaction":  trx.ID,
		"code":         trx.Code,
		"total_ticket": trx.TotalTicket,
	})
	return trx, nil
}

func (s *ReservationService) backfillArtifacts(ctx context.Context, trx *models.Transaction, reqs []renderer.RenderRequest) {
	results := make(map[string]renderer.RenderResult, len(reqs))
	for _, rreq := range reqs {
		res, err := s.renderer.Render(ctx, rreq)
		if err != nil {
			monitoring.TrackRenderFailure()
			slog.Warn("ticket artifact rendering failed, flagged for regeneration",
				"transaction", trx.ID, "token", rreq.Token, "error", err)
			continue
		}
		results[rreq.Token] = res
	}
	if len(results) == 0 {
		return
	}

	// Merge the refs into a fresh read of the ticket list inside the unit
	// of work. Rendering can take seconds; a scan that landed on one of
	// these tickets in the meantime must survive the write-back.
	err := s.store.InTransaction(func(app core.App) error {
		fresh, err := s.store.FindTransaction(app, trx.ID)
		if err != nil {
			return err
		}
		for token, res := range results {
			if i := fresh.Tickets.IndexOf(token); i >= 0 {
				fresh.Tickets[i].QRRef = res.QRRef
				fresh.Tickets[i].ImageRef = res.ImageRef
				fresh.Tickets[i].NeedsRender = false
			}
		}
		if err := s.store.UpdateTickets(app, trx.ID, fresh.Tickets); err != nil {
			return err
		}
		trx.Tickets = fresh.Tickets
		return nil
	})
	if err != nil {
		slog.Error("could not store rendered artifact refs", "transaction", trx.ID, "error", err)
	}
}

func reservationOutcome(err error) string {
	switch {
	case errors.Is(err, status.ErrNotEnoughStock):
		return "not_enough_stock"
	case errors.Is(err, status.ErrRetryExhausted):
		return "retry_exhausted"
	case errors.Is(err, status.ErrTicketNotFound):
		return "not_found"
	case errors.Is(err, status.ErrInvalidPayload), errors.Is(err, status.ErrForbidden):
		return "invalid"
	default:
		return "error"
	}
}
