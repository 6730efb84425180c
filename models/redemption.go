package models

import "time"

// RedemptionLogEntry is the append-only record of one admission scan.
// Entries are never mutated; a revert deletes the entry for its token.
type RedemptionLogEntry struct {
	ID            string    `json:"id"`
	Token         string    `json:"token"`
	TransactionID string    `json:"transaction"`
	OperatorID    string    `json:"operator"`
	ScannedAt     time.Time `json:"scanned_at"`
}

// WristbandScan records a single-use physical wristband exchange, keyed by
// barcode. A barcode may be scanned at most once until explicitly reverted.
type WristbandScan struct {
	ID        string    `json:"id"`
	Barcode   string    `json:"barcode"`
	Scanned   bool      `json:"scanned"`
	ScannedBy string    `json:"scanned_by,omitempty"`
	ScannedAt time.Time `json:"scanned_at,omitempty"`
}
