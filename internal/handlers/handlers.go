package handlers

import (
	"errors"
	"net/http"

	"ticketline/internal/status"
	"ticketline/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// actorFromEvent turns the authenticated record into an explicit Actor; the
// services never reach into request state themselves.
func actorFromEvent(e *core.RequestEvent) models.Actor {
	if e.Auth == nil {
		return models.Actor{}
	}
	role := models.RoleBuyer
	switch {
	case e.Auth.IsSuperuser():
		role = models.RoleSuperuser
	case e.Auth.GetString("role") == "operator":
		role = models.RoleOperator
	}
	return models.Actor{ID: e.Auth.Id, Role: role}
}

// apiError maps the core error taxonomy onto HTTP responses. Business
// rejections keep their message; anything unrecognized stays opaque.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrInvalidPayload),
		errors.Is(err, status.ErrNotEnoughStock),
		errors.Is(err, status.ErrInvalidTransactionStatus),
		errors.Is(err, status.ErrNotScanned):
		return apis.NewBadRequestError(err.Error(), err)
	case errors.Is(err, status.ErrTicketNotFound),
		errors.Is(err, status.ErrTransactionNotFound):
		return apis.NewNotFoundError(err.Error(), err)
	case errors.Is(err, status.ErrAlreadyScanned),
		errors.Is(err, status.ErrRetryExhausted):
		return apis.NewApiError(http.StatusConflict, err.Error(), err)
	case errors.Is(err, status.ErrForbidden):
		return apis.NewForbiddenError(err.Error(), err)
	default:
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}
}
