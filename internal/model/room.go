package model

// Room is a screening room together with its seat layout.  Rows and
// Cols give the layout dimensions; positions without a seat are aisles.
type Room struct {
    ID    uint64 `json:"id"`
    Name  string `json:"name"`
    Rows  int    `json:"rows"`
    Cols  int    `json:"cols"`
    Seats []Seat `json:"seats"`
}
