package api

import (
	"errors"
	"net/http"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/gin-gonic/gin"
)

var errInvalidFlightStatus = errors.New("invalid flight status")

// respondError maps domain errors to HTTP statuses. Upstream gateway
// failures come back as 502 so callers know the operation is retryable, as
// opposed to the 4xx validation family.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrFlightNotFound), errors.Is(err, domain.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSeatsUnavailable),
		errors.Is(err, domain.ErrDuplicateFlightNumber),
		errors.Is(err, domain.ErrFlightHasBookings):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidBookingState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPaymentGateway):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retryable": true})
	case errors.Is(err, domain.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
