package handler

import (
	"errors"
	"net/http"

	"invoicing-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// statusFor maps service-layer errors to HTTP status codes: domain guard
// violations are 422, missing records 404, anything else a 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrEmptyInvoice),
		errors.Is(err, service.ErrInvoiceLocked),
		errors.Is(err, service.ErrDiscountTooLarge),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidUnitPrice),
		errors.Is(err, service.ErrInvalidTaxRate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// actorID extracts the authenticated user's ID set by the auth middleware.
// Returns nil when the caller is unauthenticated or the claim is malformed.
func actorID(c *gin.Context) *uuid.UUID {
	raw, ok := c.Get("userID")
	if !ok {
		return nil
	}
	str, ok := raw.(string)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return nil
	}
	return &id
}
