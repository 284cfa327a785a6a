package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_pos_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	SeatHolds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_pos_seat_holds_total",
			Help: "Seat hold attempts by result",
		},
		[]string{"result"},
	)

	SeatReleases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_pos_seat_releases_total",
			Help: "Seat releases by result",
		},
		[]string{"result"},
	)

	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_pos_bookings_total",
			Help: "Bookings created by payment method",
		},
		[]string{"payment_method"},
	)

	BookingsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_pos_bookings_rejected_total",
			Help: "Bookings rejected because a seat was no longer held",
		},
	)

	ExpiredHolds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_pos_expired_holds_total",
			Help: "Holds released by expiry",
		},
	)

	SeatEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_pos_seat_events_published_total",
			Help: "Seat-update events published on live channels",
		},
		[]string{"status"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinema_pos_db_tx_seconds",
			Help:    "Duration of seat state transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_pos_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
