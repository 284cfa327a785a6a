package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-pos/internal/model"
)

// FoodDrinkRepo reads the concession menu.
type FoodDrinkRepo struct {
	db *sql.DB
}

func NewFoodDrinkRepo(db *sql.DB) *FoodDrinkRepo { return &FoodDrinkRepo{db: db} }

// ListActive returns the items currently on sale.
func (r *FoodDrinkRepo) ListActive(ctx context.Context) ([]model.FoodDrink, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, price FROM food_drinks WHERE is_active = TRUE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanFoodDrinks(rows)
}

// ByIDsTx returns the active items among ids.
func (r *FoodDrinkRepo) ByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.FoodDrink, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT id, name, price FROM food_drinks WHERE is_active = TRUE AND id IN (`+placeholders(len(ids))+`)`,
		idArgs(nil, ids)...)
	if err != nil {
		return nil, err
	}
	return scanFoodDrinks(rows)
}

func scanFoodDrinks(rows *sql.Rows) ([]model.FoodDrink, error) {
	defer rows.Close()
	out := []model.FoodDrink{}
	for rows.Next() {
		var fd model.FoodDrink
		if err := rows.Scan(&fd.ID, &fd.Name, &fd.Price); err != nil {
			return nil, err
		}
		out = append(out, fd)
	}
	return out, rows.Err()
}
