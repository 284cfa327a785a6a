package model

// FoodDrink is a concession item sold alongside tickets.
type FoodDrink struct {
    ID    uint64 `json:"id"`
    Name  string `json:"name"`
    Price int64  `json:"price"`
}

// FoodDrinkLineItem is a quantity of one concession item.  A quantity
// of zero removes the item from the order.
type FoodDrinkLineItem struct {
    FoodDrinkID uint64 `json:"food_drink_id" validate:"required"`
    Quantity    int    `json:"quantity" validate:"gte=0"`
}
