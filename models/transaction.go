package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionPaid    TransactionStatus = "paid"
	TransactionReject  TransactionStatus = "reject"
	TransactionExpired TransactionStatus = "expired"
)

// CanTransition reports whether a transaction may move from its current
// status to next. Only pending holds are verifiable or expirable; terminal
// statuses never change outside the archive lifecycle.
func (s TransactionStatus) CanTransition(next TransactionStatus) bool {
	if s != TransactionPending {
		return false
	}
	switch next {
	case TransactionPaid, TransactionReject, TransactionExpired:
		return true
	}
	return false
}

// HoldsStock reports whether a transaction in this status still holds
// debited inventory. Rejected and expired holds have already credited their
// stock back, so lifecycle moves on them must not touch the ledger again.
func (s TransactionStatus) HoldsStock() bool {
	return s == TransactionPending || s == TransactionPaid
}

// PurchasedTicket is one admission unit inside a transaction. The token is
// minted once and never changes; artifact refs may be backfilled after the
// purchase commits.
type PurchasedTicket struct {
	Token       string `json:"token"`
	TicketType  string `json:"ticket_type"`
	QRRef       string `json:"qr_ref,omitempty"`
	ImageRef    string `json:"image_ref,omitempty"`
	NeedsRender bool   `json:"needs_render,omitempty"`
	IsScanned   bool   `json:"is_scanned"`
}

type TicketList []PurchasedTicket

// IndexOf returns the position of the ticket carrying token, or -1.
func (l TicketList) IndexOf(token string) int {
	for i := range l {
		if l[i].Token == token {
			return i
		}
	}
	return -1
}

func (l TicketList) CountScanned() int {
	n := 0
	for i := range l {
		if l[i].IsScanned {
			n++
		}
	}
	return n
}

// CountByType returns how many tickets reference each ticket type, used by
// the archive lifecycle to rebalance stock one unit per ticket.
func (l TicketList) CountByType() map[string]int {
	counts := make(map[string]int, len(l))
	for i := range l {
		counts[l[i].TicketType]++
	}
	return counts
}

// Transaction is the authoritative purchase record.
type Transaction struct {
	ID           string            `json:"id"`
	Code         string            `json:"code"`
	UserID       string            `json:"user"`
	Tickets      TicketList        `json:"tickets"`
	TotalTicket  int               `json:"total_ticket"`
	TotalPrice   decimal.Decimal   `json:"total_price"`
	Status       TransactionStatus `json:"status"` // pending, paid, reject, expired
	Method       string            `json:"method"`
	PaymentProof string            `json:"payment_proof,omitempty"`
	ExpiresAt    time.Time         `json:"expires_at"`
	VerifiedBy   string            `json:"verified_by,omitempty"`
	VerifiedAt   time.Time         `json:"verified_at,omitempty"`
	Created      time.Time         `json:"created"`
}

// ArchivedTransaction is a transaction moved out of the active ledger,
// keeping a back-reference so it can be restored.
type ArchivedTransaction struct {
	ID                    string    `json:"id"`
	OriginalTransactionID string    `json:"original_transaction"`
	ArchivedAt            time.Time `json:"archived_at"`
	Transaction
}

// NewArchived derives the archive copy of trx at the given time.
func NewArchived(trx Transaction, at time.Time) ArchivedTransaction {
	arch := ArchivedTransaction{
		OriginalTransactionID: trx.ID,
		ArchivedAt:            at,
		Transaction:           trx,
	}
	arch.Transaction.ID = ""
	return arch
}
