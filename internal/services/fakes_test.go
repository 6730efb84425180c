package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"ticketline/internal/services/renderer"
	"ticketline/internal/status"
	"ticketline/models"

	"github.com/pocketbase/pocketbase/core"
)

// fakeStore is an in-memory stand-in for PBStore with real unit-of-work
// semantics: a failed InTransaction rolls every mutation of that unit back.
type fakeStore struct {
	mu sync.Mutex

	TicketTypes  map[string]*models.TicketType
	Events       map[string]*models.Event
	Transactions map[string]*models.Transaction
	Archived     map[string]*models.ArchivedTransaction
	ScanLogs     []models.RedemptionLogEntry
	Wristbands   map[string]*models.WristbandScan
	History      map[string][]string

	seq int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		TicketTypes:  map[string]*models.TicketType{},
		Events:       map[string]*models.Event{},
		Transactions: map[string]*models.Transaction{},
		Archived:     map[string]*models.ArchivedTransaction{},
		Wristbands:   map[string]*models.WristbandScan{},
		History:      map[string][]string{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return prefix + strconv.FormatInt(f.seq, 10)
}

type fakeSnapshot struct {
	TicketTypes  map[string]*models.TicketType
	Events       map[string]*models.Event
	Transactions map[string]*models.Transaction
	Archived     map[string]*models.ArchivedTransaction
	ScanLogs     []models.RedemptionLogEntry
	Wristbands   map[string]*models.WristbandScan
	History      map[string][]string
}

func (f *fakeStore) snapshot() fakeSnapshot {
	var snap fakeSnapshot
	raw, err := json.Marshal(fakeSnapshot{
		TicketTypes:  f.TicketTypes,
		Events:       f.Events,
		Transactions: f.Transactions,
		Archived:     f.Archived,
		ScanLogs:     f.ScanLogs,
		Wristbands:   f.Wristbands,
		History:      f.History,
	})
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		panic(err)
	}
	return snap
}

func (f *fakeStore) restore(snap fakeSnapshot) {
	f.TicketTypes = snap.TicketTypes
	f.Events = snap.Events
	f.Transactions = snap.Transactions
	f.Archived = snap.Archived
	f.ScanLogs = snap.ScanLogs
	f.Wristbands = snap.Wristbands
	f.History = snap.History
}

func (f *fakeStore) InTransaction(fn func(app core.App) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.snapshot()
	if err := fn(nil); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeStore) TicketType(app core.App, id string) (*models.TicketType, error) {
	tt, ok := f.TicketTypes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, id)
	}
	cp := *tt
	return &cp, nil
}

func (f *fakeStore) Event(app core.App, id string) (*models.Event, error) {
	ev, ok := f.Events[id]
	if !ok {
		return nil, fmt.Errorf("event %s not found", id)
	}
	cp := *ev
	return &cp, nil
}

func (f *fakeStore) CreateTransaction(app core.App, trx *models.Transaction) error {
	trx.ID = f.nextID("trx")
	trx.Created = time.Now()
	cp := *trx
	cp.Tickets = append(models.TicketList{}, trx.Tickets...)
	f.Transactions[trx.ID] = &cp
	return nil
}

func (f *fakeStore) FindTransaction(app core.App, id string) (*models.Transaction, error) {
	trx, ok := f.Transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrTransactionNotFound, id)
	}
	cp := *trx
	cp.Tickets = append(models.TicketList{}, trx.Tickets...)
	return &cp, nil
}

func (f *fakeStore) UpdateTransaction(app core.App, trx *models.Transaction) error {
	if _, ok := f.Transactions[trx.ID]; !ok {
		return fmt.Errorf("%w: %s", status.ErrTransactionNotFound, trx.ID)
	}
	cp := *trx
	cp.Tickets = append(models.TicketList{}, trx.Tickets...)
	f.Transactions[trx.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteTransaction(app core.App, id string) error {
	if _, ok := f.Transactions[id]; !ok {
		return fmt.Errorf("%w: %s", status.ErrTransactionNotFound, id)
	}
	delete(f.Transactions, id)
	return nil
}

func (f *fakeStore) FindByTicketToken(app core.App, token string) (*models.Transaction, error) {
	for id, trx := range f.Transactions {
		if trx.Tickets.IndexOf(token) >= 0 {
			return f.FindTransaction(app, id)
		}
	}
	return nil, fmt.Errorf("%w: token %s", status.ErrTicketNotFound, token)
}

func (f *fakeStore) UpdateTickets(app core.App, transactionID string, tickets models.TicketList) error {
	trx, ok := f.Transactions[transactionID]
	if !ok {
		return fmt.Errorf("%w: %s", status.ErrTransactionNotFound, transactionID)
	}
	trx.Tickets = append(models.TicketList{}, tickets...)
	return nil
}

func (f *fakeStore) AppendToHistory(app core.App, userID, transactionID string) error {
	f.History[userID] = append(f.History[userID], transactionID)
	return nil
}

func (f *fakeStore) ListByUser(app core.App, userID string, limit int) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for id, trx := range f.Transactions {
		if trx.UserID == userID && len(out) < limit {
			cp, _ := f.FindTransaction(app, id)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListExpiredPending(app core.App, now time.Time) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for id, trx := range f.Transactions {
		if trx.Status == models.TransactionPending && !trx.ExpiresAt.After(now) {
			cp, _ := f.FindTransaction(app, id)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *fakeStore) AppendScanLog(app core.App, entry *models.RedemptionLogEntry) error {
	entry.ID = f.nextID("log")
	f.ScanLogs = append(f.ScanLogs, *entry)
	return nil
}

func (f *fakeStore) DeleteScanLogs(app core.App, token string) error {
	kept := f.ScanLogs[:0]
	for _, entry := range f.ScanLogs {
		if entry.Token != token {
			kept = append(kept, entry)
		}
	}
	f.ScanLogs = kept
	return nil
}

func (f *fakeStore) CreateArchived(app core.App, arch *models.ArchivedTransaction) error {
	arch.ID = f.nextID("arch")
	cp := *arch
	cp.Tickets = append(models.TicketList{}, arch.Tickets...)
	f.Archived[arch.ID] = &cp
	return nil
}

func (f *fakeStore) FindArchived(app core.App, id string) (*models.ArchivedTransaction, error) {
	arch, ok := f.Archived[id]
	if !ok {
		return nil, fmt.Errorf("%w: archived %s", status.ErrTransactionNotFound, id)
	}
	cp := *arch
	cp.Tickets = append(models.TicketList{}, arch.Tickets...)
	return &cp, nil
}

func (f *fakeStore) DeleteArchived(app core.App, id string) error {
	if _, ok := f.Archived[id]; !ok {
		return fmt.Errorf("%w: archived %s", status.ErrTransactionNotFound, id)
	}
	delete(f.Archived, id)
	return nil
}

func (f *fakeStore) SetArchivedStatus(app core.App, id string, st models.TransactionStatus) error {
	arch, ok := f.Archived[id]
	if !ok {
		return fmt.Errorf("%w: archived %s", status.ErrTransactionNotFound, id)
	}
	arch.Status = st
	return nil
}

func (f *fakeStore) FindWristband(app core.App, barcode string) (*models.WristbandScan, error) {
	w, ok := f.Wristbands[barcode]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) SaveWristband(app core.App, w *models.WristbandScan) error {
	if w.ID == "" {
		w.ID = f.nextID("wb")
	}
	cp := *w
	f.Wristbands[w.Barcode] = &cp
	return nil
}

// fakeInventory mutates the fake store's stock directly, so unit-of-work
// rollbacks cover it, and can inject a number of write conflicts before
// operations start succeeding.
type fakeInventory struct {
	store     *fakeStore
	conflicts int32
}

func newFakeInventory(store *fakeStore) *fakeInventory {
	return &fakeInventory{store: store}
}

func (f *fakeInventory) injectConflicts(n int32) {
	atomic.StoreInt32(&f.conflicts, n)
}

func (f *fakeInventory) takeConflict() bool {
	for {
		n := atomic.LoadInt32(&f.conflicts)
		if n <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&f.conflicts, n, n-1) {
			return true
		}
	}
}

func (f *fakeInventory) TryDebit(app core.App, ticketTypeID string, quantity int) (int, error) {
	if f.takeConflict() {
		return 0, status.ErrWriteConflict
	}
	tt, ok := f.store.TicketTypes[ticketTypeID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketTypeID)
	}
	if tt.Status == models.TicketTypeUnavailable || quantity > tt.Stock {
		return 0, fmt.Errorf("%w: requested %d, available %d", status.ErrNotEnoughStock, quantity, tt.Stock)
	}
	tt.Stock -= quantity
	tt.Status = models.StatusForStock(tt.Stock)
	return tt.Stock, nil
}

func (f *fakeInventory) Credit(app core.App, ticketTypeID string, quantity int) (int, error) {
	tt, ok := f.store.TicketTypes[ticketTypeID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketTypeID)
	}
	tt.Stock += quantity
	if tt.Status != models.TicketTypeUnavailable {
		tt.Status = models.StatusForStock(tt.Stock)
	}
	return tt.Stock, nil
}

// fakeRenderer returns deterministic refs, or fails when broken.
type fakeRenderer struct {
	broken bool
	calls  int32
}

func (f *fakeRenderer) Render(ctx context.Context, req renderer.RenderRequest) (renderer.RenderResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.broken {
		return renderer.RenderResult{}, status.ErrRenderingFailed
	}
	return renderer.RenderResult{
		QRRef:    "qr/" + req.Token + ".png",
		ImageRef: "tickets/" + req.Token + ".png",
	}, nil
}

// fakeNotifier records published messages.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []publishedMessage
}

type publishedMessage struct {
	Channel string
	Message map[string]any
}

func (f *fakeNotifier) Publish(channel string, message map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, publishedMessage{Channel: channel, Message: message})
}

func (f *fakeNotifier) published(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if m.Channel == channel {
			n++
		}
	}
	return n
}
