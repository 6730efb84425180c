package models

import (
	"github.com/shopspring/decimal"
)

type TicketTypeStatus string

const (
	TicketTypeAvailable   TicketTypeStatus = "available"
	TicketTypeSoldOut     TicketTypeStatus = "soldout"
	TicketTypeUnavailable TicketTypeStatus = "unavailable"
)

// TicketType is one purchasable seat category of an event, with finite stock.
// Stock is mutated only through the inventory ledger's debit/credit contract.
type TicketType struct {
	ID      string           `json:"id"`
	EventID string           `json:"event_id"`
	Name    string           `json:"name"`
	Price   decimal.Decimal  `json:"price"`
	Stock   int              `json:"stock"`
	Status  TicketTypeStatus `json:"status"` // available, soldout, unavailable
}

// StatusForStock returns the status a ticket type must carry after its stock
// reaches n. Unavailable is an admin override and is never derived here.
func StatusForStock(n int) TicketTypeStatus {
	if n == 0 {
		return TicketTypeSoldOut
	}
	return TicketTypeAvailable
}

type Event struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Venue     string            `json:"venue"`
	Templates map[string]string `json:"templates"` // template key -> stored template ref
}

// Template resolves a ticket artwork template by key, falling back to the
// default template when the key is unknown.
func (e Event) Template(key string) string {
	if ref, ok := e.Templates[key]; ok && ref != "" {
		return ref
	}
	return e.Templates["default"]
}
