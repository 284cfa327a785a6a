package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
)

// CatalogAPI is the reference data behind the catalog routes.
type CatalogAPI interface {
	Room(ctx context.Context, id uint64) (*model.Room, error)
	Showtime(ctx context.Context, id uint64) (*model.Showtime, error)
	FoodDrinks(ctx context.Context) ([]model.FoodDrink, error)
}

type CatalogHandler struct {
	svc CatalogAPI
	log observability.Logger
}

func NewCatalogHandler(svc CatalogAPI, log observability.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: log}
}

// GetRoom handles GET /v1/rooms/:id and returns the room with its seats.
func (h *CatalogHandler) GetRoom(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	room, err := h.svc.Room(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, room)
}

// GetShowtime handles GET /v1/showtimes/:id.
func (h *CatalogHandler) GetShowtime(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	st, err := h.svc.Showtime(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// ListFoodDrinks handles GET /v1/food-drinks.
func (h *CatalogHandler) ListFoodDrinks(c echo.Context) error {
	items, err := h.svc.FoodDrinks(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
