package booking

import (
	"net/http"
	"strconv"
	"time"

	"staybook/internal/middleware"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/response"
	"staybook/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookings", h.ListBookings)
	rg.GET("/bookings/:id", h.GetBooking)
	rg.POST("/bookings", h.CreateBooking)
	rg.PUT("/bookings/:id", h.UpdateBooking)
	rg.PATCH("/bookings/check-in/:id", h.CheckIn)
	rg.DELETE("/bookings/:id", h.DeleteBooking)

	rg.GET("/apartments/:id/availability", h.GetApartmentAvailability)
}

func (h *Handler) ListBookings(c *gin.Context) {
	var f ListFilter
	var err error
	if f.UserID, err = queryInt64(c, "userId"); err != nil {
		_ = c.Error(err)
		return
	}
	if f.ApartmentID, err = queryInt64(c, "apartmentId"); err != nil {
		_ = c.Error(err)
		return
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, total, err := h.service.List(c.Request.Context(), middleware.CurrentActor(c), f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out := make([]BookingResponse, 0, len(items))
	for i := range items {
		out = append(out, toBookingResponse(&items[i]))
	}
	response.Success(c, http.StatusOK, BookingListResponse{Items: out, Total: total})
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.Get(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toBookingResponse(b))
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validator.BindError("Invalid request body", err))
		return
	}

	b, err := h.service.Create(c.Request.Context(), middleware.CurrentActor(c), CreateInput{
		UserID:             req.CustomerID,
		ApartmentID:        req.ApartmentID,
		DateFrom:           req.DateFrom.Time,
		DateTo:             req.DateTo.Time,
		AdditionalRequests: req.AdditionalRequests,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toBookingResponse(b))
}

func (h *Handler) UpdateBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validator.BindError("Invalid request body", err))
		return
	}

	ctx := c.Request.Context()
	actor := middleware.CurrentActor(c)
	if req.CustomerID != 0 {
		current, err := h.service.Get(ctx, actor, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if current.UserID != req.CustomerID {
			_ = c.Error(apperr.Validation("CUSTOMER_IMMUTABLE", "customerId of a booking cannot be changed", map[string]any{"field": "customerId"}))
			return
		}
	}

	b, err := h.service.Update(ctx, actor, id, UpdateInput{
		ApartmentID:        req.ApartmentID,
		DateFrom:           req.DateFrom.Time,
		DateTo:             req.DateTo.Time,
		AdditionalRequests: req.AdditionalRequests,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toBookingResponse(b))
}

func (h *Handler) CheckIn(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.CheckIn(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toBookingResponse(b))
}

func (h *Handler) DeleteBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetApartmentAvailability(c *gin.Context) {
	apartmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || apartmentID <= 0 {
		_ = c.Error(apperr.Validation("INVALID_ID", "invalid apartment id", map[string]any{"field": "id"}))
		return
	}

	start, err := queryDate(c, "startDate")
	if err != nil {
		_ = c.Error(err)
		return
	}
	end, err := queryDate(c, "endDate")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var startT, endT *time.Time
	if start != nil {
		startT = &start.Time
	}
	if end != nil {
		endT = &end.Time
	}
	ranges, err := h.service.GetApartmentAvailability(c.Request.Context(), apartmentID, startT, endT)
	if err != nil {
		_ = c.Error(err)
		return
	}

	booked := make([]BookedRangeResponse, 0, len(ranges))
	for _, r := range ranges {
		booked = append(booked, toBookedRangeResponse(r))
	}
	response.Success(c, http.StatusOK, AvailabilityResponse{
		ApartmentID: apartmentID,
		StartDate:   start,
		EndDate:     end,
		Booked:      booked,
	})
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(apperr.Validation("INVALID_ID", "invalid booking id", map[string]any{"field": "id"}))
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, apperr.Validation("VALIDATION_ERROR", "invalid "+name, map[string]any{"field": name})
	}
	return v, nil
}

func queryDate(c *gin.Context, name string) (*Date, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	d, err := ParseDate(raw)
	if err != nil {
		return nil, apperr.Validation("VALIDATION_ERROR", err.Error(), map[string]any{"field": name})
	}
	return &d, nil
}
