package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/Arseniy92/charterpay/internal/repository"
	"github.com/Arseniy92/charterpay/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(public, admin *gin.RouterGroup) {
	public.GET("", h.search)
	public.GET("/:id", h.get)
	admin.POST("", h.create)
	admin.PUT("/:id", h.update)
	admin.DELETE("/:id", h.delete)
}

type createFlightRequest struct {
	FlightNumber  string `json:"flight_number"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	PriceCents    int64  `json:"price_cents"`
	TotalSeats    int    `json:"total_seats"`
	MinimumSeats  int    `json:"minimum_seats"`
}

// updateFlightRequest is the full allow-list for admin edits. Unknown JSON
// fields are rejected rather than silently dropped.
type updateFlightRequest struct {
	Origin        *string `json:"origin"`
	Destination   *string `json:"destination"`
	DepartureTime *string `json:"departure_time"`
	ArrivalTime   *string `json:"arrival_time"`
	PriceCents    *int64  `json:"price_cents"`
	MinimumSeats  *int    `json:"minimum_seats"`
	Status        *string `json:"status"`
}

type flightResponse struct {
	ID             int64  `json:"id"`
	FlightNumber   string `json:"flight_number"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartureTime  string `json:"departure_time"`
	ArrivalTime    string `json:"arrival_time"`
	PriceCents     int64  `json:"price_cents"`
	TotalSeats     int    `json:"total_seats"`
	AvailableSeats int    `json:"available_seats"`
	SoldSeats      int    `json:"sold_seats"`
	MinimumSeats   int    `json:"minimum_seats"`
	Status         string `json:"status"`
}

func toFlightResponse(f *domain.Flight) flightResponse {
	return flightResponse{
		ID:             f.ID,
		FlightNumber:   f.FlightNumber,
		Origin:         f.Origin,
		Destination:    f.Destination,
		DepartureTime:  f.DepartureTime.Format(time.RFC3339),
		ArrivalTime:    f.ArrivalTime.Format(time.RFC3339),
		PriceCents:     f.PriceCents,
		TotalSeats:     f.TotalSeats,
		AvailableSeats: f.AvailableSeats,
		SoldSeats:      f.SoldSeats,
		MinimumSeats:   f.MinimumSeats,
		Status:         string(f.Status),
	}
}

func (h *FlightHandler) search(c *gin.Context) {
	filter := repository.FlightFilter{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
	}
	if raw := c.Query("date"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		filter.Date = &day
	}

	list, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]flightResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toFlightResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(flight))
}

func (h *FlightHandler) create(c *gin.Context) {
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flight, err := h.service.Create(c.Request.Context(), flights.CreateFlightInput{
		FlightNumber:  req.FlightNumber,
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		PriceCents:    req.PriceCents,
		TotalSeats:    req.TotalSeats,
		MinimumSeats:  req.MinimumSeats,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toFlightResponse(flight))
}

func (h *FlightHandler) update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req updateFlightRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update, err := req.toUpdate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flight, err := h.service.Update(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(flight))
}

func (h *FlightHandler) delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "flight deleted"})
}

func (r updateFlightRequest) toUpdate() (repository.FlightUpdate, error) {
	update := repository.FlightUpdate{
		Origin:       r.Origin,
		Destination:  r.Destination,
		PriceCents:   r.PriceCents,
		MinimumSeats: r.MinimumSeats,
	}
	if r.DepartureTime != nil {
		t, err := time.Parse(time.RFC3339, *r.DepartureTime)
		if err != nil {
			return repository.FlightUpdate{}, err
		}
		update.DepartureTime = &t
	}
	if r.ArrivalTime != nil {
		t, err := time.Parse(time.RFC3339, *r.ArrivalTime)
		if err != nil {
			return repository.FlightUpdate{}, err
		}
		update.ArrivalTime = &t
	}
	if r.Status != nil {
		status := domain.FlightStatus(*r.Status)
		switch status {
		case domain.FlightStatusScheduled, domain.FlightStatusCancelled, domain.FlightStatusRefunded:
			update.Status = &status
		default:
			return repository.FlightUpdate{}, errInvalidFlightStatus
		}
	}
	return update, nil
}
