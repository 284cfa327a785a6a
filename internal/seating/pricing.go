package seating

import (
	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/model"
)

var (
	// ErrUnknownFoodDrink is returned when a line item references an item
	// missing from the menu.
	ErrUnknownFoodDrink = errors.New("unknown food/drink item")
	// ErrInvalidQuantity is returned for negative line item quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Line is one priced row of a quote.
type Line struct {
	Label     string `json:"label"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Amount    int64  `json:"amount"`
}

// Quote is the priced summary of a selection.
type Quote struct {
	Seats          []Line `json:"seats"`
	FoodDrinks     []Line `json:"food_drinks"`
	SeatTotal      int64  `json:"seat_total"`
	FoodDrinkTotal int64  `json:"food_drink_total"`
	Total          int64  `json:"total"`
}

// Price computes the payable amount for units at basePrice plus the
// concession line items priced from menu.
//
// A single seat costs basePrice plus its extra price.  A couple pair is
// priced as two seats: 2 × (basePrice + pair extra price), where the
// pair extra price is the surcharge of the COUPLE seat type carried by
// its left half.  Line items cost unit price × quantity; zero
// quantities are skipped.  The total is never negative.
func Price(units []Unit, basePrice int64, items []model.FoodDrinkLineItem, menu map[uint64]model.FoodDrink) (Quote, error) {
	var q Quote
	for _, u := range units {
		if len(u.Seats) == 0 {
			continue
		}
		unit := basePrice + u.Seats[0].ExtraPrice
		n := len(u.Seats)
		line := Line{Label: u.Label, Quantity: n, UnitPrice: unit, Amount: int64(n) * unit}
		q.Seats = append(q.Seats, line)
		q.SeatTotal += line.Amount
	}

	for _, it := range items {
		if it.Quantity < 0 {
			return Quote{}, errors.Wrapf(ErrInvalidQuantity, "food/drink %d: quantity %d", it.FoodDrinkID, it.Quantity)
		}
		if it.Quantity == 0 {
			continue
		}
		fd, ok := menu[it.FoodDrinkID]
		if !ok {
			return Quote{}, errors.Wrapf(ErrUnknownFoodDrink, "food/drink %d", it.FoodDrinkID)
		}
		line := Line{Label: fd.Name, Quantity: it.Quantity, UnitPrice: fd.Price, Amount: int64(it.Quantity) * fd.Price}
		q.FoodDrinks = append(q.FoodDrinks, line)
		q.FoodDrinkTotal += line.Amount
	}

	q.Total = q.SeatTotal + q.FoodDrinkTotal
	if q.Total < 0 {
		q.Total = 0
	}
	return q, nil
}

// Menu indexes a food/drink list by id.
func Menu(items []model.FoodDrink) map[uint64]model.FoodDrink {
	m := make(map[uint64]model.FoodDrink, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return m
}
