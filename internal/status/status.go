package status

import (
	"errors"
	"strings"
)

var (
	ErrInvalidPayload           = errors.New("purchase: invalid payload")
	ErrTicketNotFound           = errors.New("ticket: ticket type not found")
	ErrTransactionNotFound      = errors.New("transaction: transaction not found")
	ErrNotEnoughStock           = errors.New("stock: not enough stock")
	ErrWriteConflict            = errors.New("stock: concurrent write conflict")
	ErrRetryExhausted           = errors.New("purchase: retry attempts exhausted")
	ErrInvalidTransactionStatus = errors.New("transaction: invalid status transition")
	ErrAlreadyScanned           = errors.New("redemption: already scanned")
	ErrNotScanned               = errors.New("redemption: not scanned")
	ErrRenderingFailed          = errors.New("renderer: artifact rendering failed")
	ErrForbidden                = errors.New("auth: operation not allowed for this role")
)

// IsConflict reports whether err is a transient write conflict that the
// reservation retry loop may recover from. SQLite surfaces contention as
// busy/locked errors, which are equivalent to a lost row guard.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWriteConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
