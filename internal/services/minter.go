package services

import (
	"ticketline/models"

	"github.com/google/uuid"
)

// TokenMinter produces the unique admission tokens embedded in ticket
// artifacts.
type TokenMinter interface {
	Mint(ticketTypeID string) models.PurchasedTicket
}

// Minter mints 128-bit random tokens. Artifact rendering is deliberately not
// part of minting: tickets leave here flagged needs_render and the refs are
// backfilled only after the owning purchase commits, so a rolled-back attempt
// never leaves orphaned artifacts behind.
type Minter struct{}

func NewMinter() *Minter {
	return &Minter{}
}

func (m *Minter) Mint(ticketTypeID string) models.PurchasedTicket {
	return models.PurchasedTicket{
		Token:       uuid.NewString(),
		TicketType:  ticketTypeID,
		NeedsRender: true,
	}
}
