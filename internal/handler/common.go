package handler

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-pos/internal/middleware"
	"github.com/iliyamo/cinema-pos/internal/observability"
	"github.com/iliyamo/cinema-pos/internal/payment"
	"github.com/iliyamo/cinema-pos/internal/repository"
	"github.com/iliyamo/cinema-pos/internal/seating"
	"github.com/iliyamo/cinema-pos/internal/service"
)

// Error codes returned in the "error" field.  Terminals branch on them,
// so they are part of the API.
const (
	CodeBadRequest      = "bad_request"
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeSeatUnavailable = "seat_unavailable"
	CodeStaleHold       = "stale_hold"
	CodeUnknownSeat     = "unknown_seat"
	CodeSplitCouple     = "split_couple"
	CodeInvalidItems    = "invalid_food_drinks"
	CodeNotPrepaid      = "not_prepaid"
	CodeConflict        = "conflict"
	CodePaymentFailed   = "payment_failed"
	CodeUnavailable     = "unavailable"
	CodeInternal        = "internal_error"
)

// RequestValidator plugs go-playground/validator into echo so handlers
// can call c.Validate.
type RequestValidator struct {
	v *validator.Validate
}

func NewValidator() *RequestValidator { return &RequestValidator{v: validator.New()} }

func (rv *RequestValidator) Validate(i interface{}) error { return rv.v.Struct(i) }

func apiError(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": code, "message": msg})
}

// httpError is apiError for helpers that return before a handler has
// a response to write; echo renders the map as the body.
func httpError(status int, code, msg string) *echo.HTTPError {
	return echo.NewHTTPError(status, echo.Map{"error": code, "message": msg})
}

// writeError maps service and repository errors to a status and code.
func writeError(c echo.Context, log observability.Logger, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apiError(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, repository.ErrSeatUnavailable):
		return apiError(c, http.StatusConflict, CodeSeatUnavailable, "seat is held or booked")
	case errors.Is(err, repository.ErrStaleHold):
		return apiError(c, http.StatusConflict, CodeStaleHold, err.Error())
	case errors.Is(err, repository.ErrUnknownSeat):
		return apiError(c, http.StatusUnprocessableEntity, CodeUnknownSeat, err.Error())
	case errors.Is(err, service.ErrSplitCouple):
		return apiError(c, http.StatusUnprocessableEntity, CodeSplitCouple, err.Error())
	case errors.Is(err, seating.ErrUnknownFoodDrink), errors.Is(err, seating.ErrInvalidQuantity):
		return apiError(c, http.StatusUnprocessableEntity, CodeInvalidItems, err.Error())
	case errors.Is(err, seating.ErrRoomUnavailable):
		return apiError(c, http.StatusUnprocessableEntity, CodeNotFound, "room has no seats")
	case errors.Is(err, service.ErrNotPrepaid):
		return apiError(c, http.StatusConflict, CodeNotPrepaid, err.Error())
	case errors.Is(err, repository.ErrConflict):
		return apiError(c, http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, service.ErrNoPaymentGateway):
		return apiError(c, http.StatusServiceUnavailable, CodeUnavailable, err.Error())
	case errors.Is(err, payment.ErrGateway):
		return apiError(c, http.StatusBadGateway, CodePaymentFailed, "payment gateway unavailable")
	}
	log.WithError(err).WithField("route", c.Path()).Error("request failed")
	return apiError(c, http.StatusInternalServerError, CodeInternal, "internal error")
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, httpError(http.StatusBadRequest, CodeBadRequest, "invalid "+name)
	}
	return id, nil
}

// operatorID returns the caller or writes 401.
func operatorID(c echo.Context) (uint64, error) {
	id := middleware.OperatorID(c)
	if id == 0 {
		return 0, httpError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	return id, nil
}

// Health is the liveness probe for load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
