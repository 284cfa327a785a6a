package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
)

// SeatAPI is the seat-state half of the backing store.
type SeatAPI interface {
	HoldSeat(ctx context.Context, operatorID, showtimeID, seatID uint64) (model.HeldSeat, error)
	ReleaseSeat(ctx context.Context, operatorID, showtimeID, seatID uint64) error
	BookedSeats(ctx context.Context, showtimeID uint64) ([]model.BookedSeat, error)
	HeldSeats(ctx context.Context, showtimeID uint64) ([]model.HeldSeat, error)
}

type SeatHandler struct {
	svc SeatAPI
	log observability.Logger
}

func NewSeatHandler(svc SeatAPI, log observability.Logger) *SeatHandler {
	return &SeatHandler{svc: svc, log: log}
}

type holdReq struct {
	SeatID uint64 `json:"seat_id" validate:"required"`
}

// BookedSeats handles GET /v1/showtimes/:id/booked-seats.
func (h *SeatHandler) BookedSeats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	seats, err := h.svc.BookedSeats(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": seats})
}

// HeldSeats handles GET /v1/showtimes/:id/held-seats.
func (h *SeatHandler) HeldSeats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	seats, err := h.svc.HeldSeats(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": seats})
}

// Hold handles POST /v1/showtimes/:id/holds.  It answers 201 with the
// hold, or 409 seat_unavailable when anyone already holds or booked
// the seat.
func (h *SeatHandler) Hold(c echo.Context) error {
	op, err := operatorID(c)
	if err != nil {
		return err
	}
	showtimeID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req holdReq
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, CodeBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return apiError(c, http.StatusBadRequest, CodeBadRequest, "seat_id required")
	}
	held, err := h.svc.HoldSeat(c.Request().Context(), op, showtimeID, req.SeatID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, held)
}

// Release handles DELETE /v1/showtimes/:id/holds/:seat_id.  Releasing
// a seat the caller does not hold succeeds.
func (h *SeatHandler) Release(c echo.Context) error {
	op, err := operatorID(c)
	if err != nil {
		return err
	}
	showtimeID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	seatID, err := pathID(c, "seat_id")
	if err != nil {
		return err
	}
	if err := h.svc.ReleaseSeat(c.Request().Context(), op, showtimeID, seatID); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seat_id": seatID, "released": true})
}
