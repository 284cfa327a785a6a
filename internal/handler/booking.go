package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
)

// BookingAPI creates and pays bookings.
type BookingAPI interface {
	CreateBooking(ctx context.Context, operatorID uint64, req model.BookingRequest) (*model.Booking, error)
	Get(ctx context.Context, operatorID, bookingID uint64) (*model.Booking, error)
	Checkout(ctx context.Context, operatorID, bookingID uint64) (*model.PaymentCheckout, error)
}

type BookingHandler struct {
	svc BookingAPI
	log observability.Logger
}

func NewBookingHandler(svc BookingAPI, log observability.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, log: log}
}

// Create handles POST /v1/bookings.  A seat the caller no longer holds
// fails the whole request with 409 stale_hold.
func (h *BookingHandler) Create(c echo.Context) error {
	op, err := operatorID(c)
	if err != nil {
		return err
	}
	var req model.BookingRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, CodeBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return apiError(c, http.StatusBadRequest, CodeBadRequest, err.Error())
	}
	b, err := h.svc.CreateBooking(c.Request().Context(), op, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	op, err := operatorID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.svc.Get(c.Request().Context(), op, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Checkout handles POST /v1/bookings/:id/checkout and returns the
// gateway payment id with the URL the customer pays at.
func (h *BookingHandler) Checkout(c echo.Context) error {
	op, err := operatorID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	co, err := h.svc.Checkout(c.Request().Context(), op, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, co)
}
