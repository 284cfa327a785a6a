package service

import (
	"context"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/repository"
)

// CatalogService serves the read-only reference data terminals need to
// draw a seat map: rooms, showtimes and the concession menu.
type CatalogService struct {
	rooms     *repository.RoomRepo
	showtimes *repository.ShowtimeRepo
	foods     *repository.FoodDrinkRepo
}

func NewCatalogService(rooms *repository.RoomRepo, showtimes *repository.ShowtimeRepo, foods *repository.FoodDrinkRepo) *CatalogService {
	return &CatalogService{rooms: rooms, showtimes: showtimes, foods: foods}
}

func (s *CatalogService) Room(ctx context.Context, id uint64) (*model.Room, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *CatalogService) Showtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	return s.showtimes.GetByID(ctx, id)
}

func (s *CatalogService) FoodDrinks(ctx context.Context) ([]model.FoodDrink, error) {
	return s.foods.ListActive(ctx)
}
