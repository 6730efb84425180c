package handlers

import (
	"net/http"

	"ticketline/internal/services"
	"ticketline/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type ArchiveHandler struct {
	archive *services.ArchiveService
}

func NewArchiveHandler(archive *services.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

// ArchiveTransaction moves a transaction out of the active ledger, crediting
// its stock back.
func (h *ArchiveHandler) ArchiveTransaction(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	arch, err := h.archive.Archive(e.Request.Context(), e.Request.PathValue("transactionId"), actorFromEvent(e))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, arch)
}

// RestoreTransaction reinstates an archived transaction, debiting its stock
// again.
func (h *ArchiveHandler) RestoreTransaction(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	trx, err := h.archive.Restore(e.Request.Context(), e.Request.PathValue("archivedId"), actorFromEvent(e))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, trx)
}

// UpdateArchivedStatus overrides the status on an archive entry; paid
// performs the restore in the same unit of work. Superuser only.
func (h *ArchiveHandler) UpdateArchivedStatus(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	err := h.archive.UpdateArchivedStatus(
		e.Request.Context(),
		e.Request.PathValue("archivedId"),
		models.TransactionStatus(req.Status),
		actorFromEvent(e),
	)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]string{"message": "Archived status updated"})
}
