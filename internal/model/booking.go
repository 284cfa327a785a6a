package model

import "time"

// BookingType tells whether a booking was made at the counter or online.
type BookingType string

const (
    BookingOffline BookingType = "OFFLINE"
    BookingOnline  BookingType = "ONLINE"
)

// PaymentMethod selects how a booking is paid.
type PaymentMethod string

const (
    PayOnPickup PaymentMethod = "PAY_ON_PICKUP"
    Prepaid     PaymentMethod = "PREPAID"
)

// Booking statuses.  Transitions after creation (payment confirmation,
// pickup) belong to other systems.
const (
    BookingUnpaid         = "UNPAID"
    BookingPendingPayment = "PENDING_PAYMENT"
)

// BookingRequest is the payload of createBooking.  Every seat must be
// held by the caller at the time the request is processed.
type BookingRequest struct {
    Type          BookingType         `json:"type" validate:"required,oneof=OFFLINE ONLINE"`
    ShowtimeID    uint64              `json:"showtime_id" validate:"required"`
    SeatIDs       []uint64            `json:"seat_ids" validate:"required,min=1,dive,required"`
    FoodDrinks    []FoodDrinkLineItem `json:"food_drinks" validate:"dive"`
    PaymentMethod PaymentMethod       `json:"payment_method" validate:"required,oneof=PAY_ON_PICKUP PREPAID"`
}

// Booking is a confirmed conversion of held seats into sold seats.
//
// Fields:
//  ID            – primary key identifier.
//  OperatorID    – operator who finalized the booking.
//  ShowtimeID    – showtime being booked.
//  Type          – OFFLINE or ONLINE.
//  PaymentMethod – PAY_ON_PICKUP or PREPAID.
//  Status        – UNPAID or PENDING_PAYMENT.
//  TotalPrice    – amount payable in minor currency units.
//  PaymentRef    – payment id returned by the gateway (prepaid only).
//  SeatIDs       – seats converted to BOOKED.
//  FoodDrinks    – concession line items.
//  CreatedAt     – creation timestamp.
type Booking struct {
    ID            uint64              `json:"id"`
    OperatorID    uint64              `json:"operator_id"`
    ShowtimeID    uint64              `json:"showtime_id"`
    Type          BookingType         `json:"type"`
    PaymentMethod PaymentMethod       `json:"payment_method"`
    Status        string              `json:"status"`
    TotalPrice    int64               `json:"total_price"`
    PaymentRef    *string             `json:"payment_ref,omitempty"`
    SeatIDs       []uint64            `json:"seat_ids"`
    FoodDrinks    []FoodDrinkLineItem `json:"food_drinks"`
    CreatedAt     time.Time           `json:"created_at"`
}

// PaymentCheckout is the outcome of a prepaid payment initiation.  The
// operator hands RedirectURL to the customer; PaymentID correlates the
// gateway payment with the booking.
type PaymentCheckout struct {
    BookingID   uint64 `json:"booking_id"`
    PaymentID   string `json:"payment_id"`
    RedirectURL string `json:"redirect_url"`
}
