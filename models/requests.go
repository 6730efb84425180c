package models

import (
	"fmt"

	"ticketline/internal/status"
)

// PurchaseLine asks for quantity units of one ticket type.
type PurchaseLine struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

// PurchaseRequest is the typed input of the reservation coordinator. The
// operator variant buys on behalf of another user and may pick a non-default
// artwork template; both variants run the identical reservation algorithm.
type PurchaseRequest struct {
	Lines       []PurchaseLine `json:"lines"`
	Method      string         `json:"method"`
	TemplateKey string         `json:"template_key,omitempty"`

	Actor      Actor  `json:"-"`
	OnBehalfOf string `json:"on_behalf_of,omitempty"`
}

// Validate checks the request shape before any store access. Failures are
// terminal: an invalid payload is never retried.
func (r PurchaseRequest) Validate() error {
	if len(r.Lines) == 0 {
		return fmt.Errorf("%w: no purchase lines", status.ErrInvalidPayload)
	}
	for _, line := range r.Lines {
		if line.TicketTypeID == "" {
			return fmt.Errorf("%w: missing ticket type id", status.ErrInvalidPayload)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", status.ErrInvalidPayload)
		}
	}
	if r.Method == "" {
		return fmt.Errorf("%w: missing transaction method", status.ErrInvalidPayload)
	}
	if r.Actor.ID == "" {
		return fmt.Errorf("%w: missing actor", status.ErrInvalidPayload)
	}
	if r.OnBehalfOf != "" && !r.Actor.CanOperate() {
		return fmt.Errorf("%w: on-behalf purchase requires operator role", status.ErrForbidden)
	}
	return nil
}

// BuyerID resolves who the transaction is attributed to: the actor itself,
// or the on-behalf user for operator-initiated purchases.
func (r PurchaseRequest) BuyerID() string {
	if r.OnBehalfOf != "" {
		return r.OnBehalfOf
	}
	return r.Actor.ID
}

// TotalQuantity sums the requested units across all lines.
func (r PurchaseRequest) TotalQuantity() int {
	n := 0
	for _, line := range r.Lines {
		n += line.Quantity
	}
	return n
}

// VerifyRequest resolves a pending transaction to paid or reject.
type VerifyRequest struct {
	TransactionID string            `json:"transaction_id"`
	Outcome       TransactionStatus `json:"outcome"`

	Actor Actor `json:"-"`
}

func (r VerifyRequest) Validate() error {
	if r.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction id", status.ErrInvalidPayload)
	}
	if r.Outcome != TransactionPaid && r.Outcome != TransactionReject {
		return fmt.Errorf("%w: outcome must be paid or reject", status.ErrInvalidPayload)
	}
	if !r.Actor.CanOperate() {
		return fmt.Errorf("%w: verification requires operator role", status.ErrForbidden)
	}
	return nil
}
