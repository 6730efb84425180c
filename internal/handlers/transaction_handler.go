package handlers

import (
	"net/http"

	"ticketline/internal/services"
	"ticketline/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type TransactionHandler struct {
	transactions *services.TransactionService
}

func NewTransactionHandler(transactions *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// VerifyTransaction resolves a pending transaction to paid or reject after
// an operator checked the uploaded payment proof.
func (h *TransactionHandler) VerifyTransaction(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var body struct {
		Outcome string `json:"outcome"`
	}
	if err := e.BindBody(&body); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	trx, err := h.transactions.Verify(e.Request.Context(), models.VerifyRequest{
		TransactionID: e.Request.PathValue("transactionId"),
		Outcome:       models.TransactionStatus(body.Outcome),
		Actor:         actorFromEvent(e),
	})
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, trx)
}

// AttachPaymentProof stores the uploaded proof reference on the caller's
// pending transaction.
func (h *TransactionHandler) AttachPaymentProof(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var body struct {
		ProofRef string `json:"proof_ref"`
	}
	if err := e.BindBody(&body); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	err := h.transactions.AttachPaymentProof(
		e.Request.Context(),
		e.Request.PathValue("transactionId"),
		body.ProofRef,
		actorFromEvent(e),
	)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]string{"message": "Payment proof attached"})
}

// GetHistory lists the caller's purchases, newest first.
func (h *TransactionHandler) GetHistory(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	history, err := h.transactions.History(e.Request.Context(), e.Auth.Id, 20)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, history)
}
