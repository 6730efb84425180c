package handlers

import (
	"net/http"

	"ticketline/internal/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type RedemptionHandler struct {
	redemptions *services.RedemptionService
	wristbands  *services.WristbandService
}

func NewRedemptionHandler(redemptions *services.RedemptionService, wristbands *services.WristbandService) *RedemptionHandler {
	return &RedemptionHandler{redemptions: redemptions, wristbands: wristbands}
}

// RedeemTicket admits a ticket token at the gate.
func (h *RedemptionHandler) RedeemTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.redemptions.Redeem(e.Request.Context(), req.Token, actorFromEvent(e)); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]string{"message": "Ticket admitted"})
}

// RevertTicket undoes a mistaken scan. Superuser only.
func (h *RedemptionHandler) RevertTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.redemptions.Revert(e.Request.Context(), req.Token, actorFromEvent(e)); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]string{"message": "Scan reverted"})
}

// RecordWristbandScan marks a wristband barcode as exchanged.
func (h *RedemptionHandler) RecordWristbandScan(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Barcode string `json:"barcode"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.wristbands.RecordScan(e.Request.Context(), req.Barcode, actorFromEvent(e)); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]string{"message": "Wristband recorded"})
}

// RevertWristbandScan clears a recorded barcode. Superuser only.
func (h *RedemptionHandler) RevertWristbandScan(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Barcode string `json:"barcode"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.wristbands.RevertScan(e.Request.Context(), req.Barcode, actorFromEvent(e)); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]string{"message": "Wristband scan reverted"})
}
