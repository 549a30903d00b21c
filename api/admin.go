package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/Arseniy92/charterpay/internal/repository"
	"github.com/Arseniy92/charterpay/internal/service/booking"
	"github.com/Arseniy92/charterpay/internal/service/sweep"
	"github.com/gin-gonic/gin"
)

// SweepRunner triggers a refund sweep on demand.
type SweepRunner interface {
	Run(ctx context.Context) (*sweep.Report, error)
}

type AdminHandler struct {
	lifecycle booking.BookingUseCase
	bookings  repository.BookingRepository
	sweeper   SweepRunner
}

func NewAdminHandler(lifecycle booking.BookingUseCase, bookings repository.BookingRepository, sweeper SweepRunner) *AdminHandler {
	return &AdminHandler{lifecycle: lifecycle, bookings: bookings, sweeper: sweeper}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.GET("/bookings", h.listBookings)
	router.POST("/escrow", h.escrowAction)
	router.POST("/refunds/check", h.runSweep)
}

type escrowRequest struct {
	BookingID string `json:"booking_id"`
	Action    string `json:"action"`
}

type adminBookingResponse struct {
	ID                string `json:"id"`
	FlightID          int64  `json:"flight_id"`
	PassengerName     string `json:"passenger_name"`
	PassengerEmail    string `json:"passenger_email"`
	Seats             int    `json:"seats"`
	AmountCents       int64  `json:"amount_cents"`
	Status            string `json:"status"`
	Refunded          bool   `json:"refunded"`
	RefundAmountCents int64  `json:"refund_amount_cents"`
	CreatedAt         string `json:"created_at"`
}

func (h *AdminHandler) listBookings(c *gin.Context) {
	list, err := h.bookings.ListRecent(c.Request.Context(), 50)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]adminBookingResponse, 0, len(list))
	for _, b := range list {
		resp = append(resp, adminBookingResponse{
			ID:                b.ID,
			FlightID:          b.FlightID,
			PassengerName:     b.PassengerName,
			PassengerEmail:    b.PassengerEmail,
			Seats:             b.Seats,
			AmountCents:       b.AmountCents,
			Status:            string(b.Status),
			Refunded:          b.Refunded,
			RefundAmountCents: b.RefundAmountCents,
			CreatedAt:         b.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// escrowAction captures or refunds a single booking's hold.
func (h *AdminHandler) escrowAction(c *gin.Context) {
	var req escrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.BookingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "booking_id is required"})
		return
	}

	var (
		updated *domain.Booking
		err     error
		message string
	)
	switch req.Action {
	case "capture":
		updated, err = h.lifecycle.CaptureBooking(c.Request.Context(), req.BookingID)
		message = "payment captured"
	case "refund":
		updated, err = h.lifecycle.RefundBooking(c.Request.Context(), req.BookingID)
		message = "payment refunded"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"status":  string(updated.Status),
	})
}

func (h *AdminHandler) runSweep(c *gin.Context) {
	report, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "refund check completed",
		"results":         report.Results,
		"flights_checked": report.FlightsChecked,
	})
}
