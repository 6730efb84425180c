package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ticketline/internal/status"
	"ticketline/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

// PBStore maps core entities onto PocketBase collections. Methods take the
// core.App to operate on so callers inside RunInTransaction can pass the
// transactional app.
type PBStore struct {
	app core.App
}

func NewPBStore(app core.App) *PBStore {
	return &PBStore{app: app}
}

// InTransaction runs fn as one atomic unit of work against the store.
func (s *PBStore) InTransaction(fn func(app core.App) error) error {
	return s.app.RunInTransaction(fn)
}

func (s *PBStore) TicketType(app core.App, id string) (*models.TicketType, error) {
	rec, err := app.FindRecordById("tickets", id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, id)
	}
	return &models.TicketType{
		ID:      rec.Id,
		EventID: rec.GetString("event"),
		Name:    rec.GetString("name"),
		Price:   decimal.NewFromFloat(rec.GetFloat("price")),
		Stock:   rec.GetInt("stock"),
		Status:  models.TicketTypeStatus(rec.GetString("status")),
	}, nil
}

func (s *PBStore) Event(app core.App, id string) (*models.Event, error) {
	rec, err := app.FindRecordById("events", id)
	if err != nil {
		return nil, fmt.Errorf("event %s not found: %w", id, err)
	}
	templates := map[string]string{}
	if err := rec.UnmarshalJSONField("templates", &templates); err != nil {
		return nil, fmt.Errorf("event %s has malformed templates: %w", id, err)
	}
	return &models.Event{
		ID:        rec.Id,
		Name:      rec.GetString("name"),
		Venue:     rec.GetString("venue"),
		Templates: templates,
	}, nil
}

func (s *PBStore) CreateTransaction(app core.App, trx *models.Transaction) error {
	col, err := app.FindCollectionByNameOrId("transactions")
	if err != nil {
		return err
	}
	rec := core.NewRecord(col)
	applyTransaction(rec, trx)
	if err := app.Save(rec); err != nil {
		return fmt.Errorf("could not save transaction: %w", err)
	}
	trx.ID = rec.Id
	trx.Created = rec.GetDateTime("created").Time()
	return nil
}

func (s *PBStore) FindTransaction(app core.App, id string) (*models.Transaction, error) {
	rec, err := app.FindRecordById("transactions", id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", status.ErrTransactionNotFound, id)
	}
	return recordToTransaction(rec)
}

func (s *PBStore) UpdateTransaction(app core.App, trx *models.Transaction) error {
	rec, err := app.FindRecordById("transactions", trx.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", status.ErrTransactionNotFound, trx.ID)
	}
	applyTransaction(rec, trx)
	if err := app.Save(rec); err != nil {
		return fmt.Errorf("could not update transaction: %w", err)
	}
	return nil
}

func (s *PBStore) DeleteTransaction(app core.App, id string) error {
	rec, err := app.FindRecordById("transactions", id)
	if err != nil {
		return fmt.Errorf("%w: %s", status.ErrTransactionNotFound, id)
	}
	return app.Delete(rec)
}

// FindByTicketToken locates the transaction owning a ticket token. Tokens
// are uuids, so a substring match on the embedded tickets field is exact.
func (s *PBStore) FindByTicketToken(app core.App, token string) (*models.Transaction, error) {
	rec, err := app.FindFirstRecordByFilter(
		"transactions",
		"tickets ~ {:token}",
		dbx.Params{"token": token},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: token %s", status.ErrTicketNotFound, token)
		}
		return nil, err
	}
	return recordToTransaction(rec)
}

func (s *PBStore) UpdateTickets(app core.App, transactionID string, tickets models.TicketList) error {
	rec, err := app.FindRecordById("transactions", transactionID)
	if err != nil {
		return fmt.Errorf("%w: %s", status.ErrTransactionNotFound, transactionID)
	}
	rec.Set("tickets", tickets)
	return app.Save(rec)
}

func (s *PBStore) AppendToHistory(app core.App, userID, transactionID string) error {
	rec, err := app.FindRecordById("users", userID)
	if err != nil {
		return fmt.Errorf("buyer %s not found: %w", userID, err)
	}
	rec.Set("transactions", append(rec.GetStringSlice("transactions"), transactionID))
	return app.Save(rec)
}

func (s *PBStore) ListByUser(app core.App, userID string, limit int) ([]*models.Transaction, error) {
	recs, err := app.FindRecordsByFilter(
		"transactions",
		"user = {:user}",
		"-created",
		limit,
		0,
		dbx.Params{"user": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("could not list transactions: %w", err)
	}
	return recordsToTransactions(recs)
}

func (s *PBStore) ListExpiredPending(app core.App, now time.Time) ([]*models.Transaction, error) {
	recs, err := app.FindRecordsByFilter(
		"transactions",
		"status = 'pending' && expires_at <= {:now}",
		"created",
		200,
		0,
		dbx.Params{"now": now.UTC().Format(types.DefaultDateLayout)},
	)
	if err != nil {
		return nil, fmt.Errorf("could not list expired holds: %w", err)
	}
	return recordsToTransactions(recs)
}

func (s *PBStore) AppendScanLog(app core.App, entry *models.RedemptionLogEntry) error {
	col, err := app.FindCollectionByNameOrId("scan_logs")
	if err != nil {
		return err
	}
	rec := core.NewRecord(col)
	rec.Set("token", entry.Token)
	rec.Set("transaction", entry.TransactionID)
	rec.Set("operator", entry.OperatorID)
	rec.Set("scanned_at", entry.ScannedAt)
	if err := app.Save(rec); err != nil {
		return fmt.Errorf("could not append scan log: %w", err)
	}
	entry.ID = rec.Id
	return nil
}

func (s *PBStore) DeleteScanLogs(app core.App, token string) error {
	recs, err := app.FindRecordsByFilter(
		"scan_logs",
		"token = {:token}",
		"",
		0,
		0,
		dbx.Params{"token": token},
	)
	if err != nil {
		return fmt.Errorf("could not find scan logs: %w", err)
	}
	for _, rec := range recs {
		if err := app.Delete(rec); err != nil {
			return fmt.Errorf("could not delete scan log: %w", err)
		}
	}
	return nil
}

func (s *PBStore) CreateArchived(app core.App, arch *models.ArchivedTransaction) error {
	col, err := app.FindCollectionByNameOrId("archived_transactions")
	if err != nil {
		return err
	}
	rec := core.NewRecord(col)
	applyTransaction(rec, &arch.Transaction)
	rec.Set("original_transaction", arch.OriginalTransactionID)
	rec.Set("archived_at", arch.ArchivedAt)
	if err := app.Save(rec); err != nil {
		return fmt.Errorf("could not save archived transaction: %w", err)
	}
	arch.ID = rec.Id
	return nil
}

func (s *PBStore) FindArchived(app core.App, id string) (*models.ArchivedTransaction, error) {
	rec, err := app.FindRecordById("archived_transactions", id)
	if err != nil {
		return nil, fmt.Errorf("%w: archived %s", status.ErrTransactionNotFound, id)
	}
	trx, err := recordToTransaction(rec)
	if err != nil {
		return nil, err
	}
	arch := &models.ArchivedTransaction{
		ID:                    rec.Id,
		OriginalTransactionID: rec.GetString("original_transaction"),
		ArchivedAt:            rec.GetDateTime("archived_at").Time(),
		Transaction:           *trx,
	}
	arch.Transaction.ID = ""
	return arch, nil
}

func (s *PBStore) DeleteArchived(app core.App, id string) error {
	rec, err := app.FindRecordById("archived_transactions", id)
	if err != nil {
		return fmt.Errorf("%w: archived %s", status.ErrTransactionNotFound, id)
	}
	return app.Delete(rec)
}

func (s *PBStore) SetArchivedStatus(app core.App, id string, st models.TransactionStatus) error {
	rec, err := app.FindRecordById("archived_transactions", id)
	if err != nil {
		return fmt.Errorf("%w: archived %s", status.ErrTransactionNotFound, id)
	}
	rec.Set("status", string(st))
	return app.Save(rec)
}

func (s *PBStore) FindWristband(app core.App, barcode string) (*models.WristbandScan, error) {
	rec, err := app.FindFirstRecordByFilter(
		"wristbands",
		"barcode = {:barcode}",
		dbx.Params{"barcode": barcode},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &models.WristbandScan{
		ID:        rec.Id,
		Barcode:   rec.GetString("barcode"),
		Scanned:   rec.GetBool("scanned"),
		ScannedBy: rec.GetString("scanned_by"),
		ScannedAt: rec.GetDateTime("scanned_at").Time(),
	}, nil
}

func (s *PBStore) SaveWristband(app core.App, w *models.WristbandScan) error {
	var rec *core.Record
	if w.ID != "" {
		var err error
		rec, err = app.FindRecordById("wristbands", w.ID)
		if err != nil {
			return fmt.Errorf("wristband %s not found: %w", w.ID, err)
		}
	} else {
		col, err := app.FindCollectionByNameOrId("wristbands")
		if err != nil {
			return err
		}
		rec = core.NewRecord(col)
	}
	rec.Set("barcode", w.Barcode)
	rec.Set("scanned", w.Scanned)
	rec.Set("scanned_by", w.ScannedBy)
	rec.Set("scanned_at", w.ScannedAt)
	if err := app.Save(rec); err != nil {
		return fmt.Errorf("could not save wristband: %w", err)
	}
	w.ID = rec.Id
	return nil
}

func applyTransaction(rec *core.Record, trx *models.Transaction) {
	totalPrice, _ := trx.TotalPrice.Float64()
	rec.Set("code", trx.Code)
	rec.Set("user", trx.UserID)
	rec.Set("tickets", trx.Tickets)
	rec.Set("total_ticket", trx.TotalTicket)
	rec.Set("total_price", totalPrice)
	rec.Set("status", string(trx.Status))
	rec.Set("method", trx.Method)
	rec.Set("payment_proof", trx.PaymentProof)
	rec.Set("expires_at", trx.ExpiresAt)
	if trx.VerifiedBy != "" {
		rec.Set("verified_by", trx.VerifiedBy)
		rec.Set("verified_at", trx.VerifiedAt)
	}
}

func recordToTransaction(rec *core.Record) (*models.Transaction, error) {
	var tickets models.TicketList
	if err := rec.UnmarshalJSONField("tickets", &tickets); err != nil {
		return nil, fmt.Errorf("transaction %s has malformed tickets: %w", rec.Id, err)
	}
	return &models.Transaction{
		ID:           rec.Id,
		Code:         rec.GetString("code"),
		UserID:       rec.GetString("user"),
		Tickets:      tickets,
		TotalTicket:  rec.GetInt("total_ticket"),
		TotalPrice:   decimal.NewFromFloat(rec.GetFloat("total_price")),
		Status:       models.TransactionStatus(rec.GetString("status")),
		Method:       rec.GetString("method"),
		PaymentProof: rec.GetString("payment_proof"),
		ExpiresAt:    rec.GetDateTime("expires_at").Time(),
		VerifiedBy:   rec.GetString("verified_by"),
		VerifiedAt:   rec.GetDateTime("verified_at").Time(),
		Created:      rec.GetDateTime("created").Time(),
	}, nil
}

func recordsToTransactions(recs []*core.Record) ([]*models.Transaction, error) {
	out := make([]*models.Transaction, 0, len(recs))
	for _, rec := range recs {
		trx, err := recordToTransaction(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, trx)
	}
	return out, nil
}
