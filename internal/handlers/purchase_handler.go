package handlers

import (
	"net/http"

	"ticketline/internal/services"
	"ticketline/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PurchaseHandler struct {
	reservations *services.ReservationService
}

func NewPurchaseHandler(reservations *services.ReservationService) *PurchaseHandler {
	return &PurchaseHandler{reservations: reservations}
}

// CreatePurchase reserves stock and issues tickets for the authenticated
// buyer.
func (h *PurchaseHandler) CreatePurchase(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req models.PurchaseRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.Actor = actorFromEvent(e)
	req.OnBehalfOf = ""

	trx, err := h.reservations.Purchase(e.Request.Context(), req)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, trx)
}

// CreateOperatorPurchase is the operator variant: same reservation
// algorithm, attributed to the on-behalf user, with free template choice.
func (h *PurchaseHandler) CreateOperatorPurchase(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req models.PurchaseRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.Actor = actorFromEvent(e)
	if req.OnBehalfOf == "" {
		return apis.NewBadRequestError("Missing on_behalf_of user", nil)
	}

	trx, err := h.reservations.Purchase(e.Request.Context(), req)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, trx)
}
