//go:build integration

// Package mysqltest starts a throwaway MySQL container with the schema
// and a small fixture for integration tests.
package mysqltest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iliyamo/cinema-pos/internal/database"
)

// Fixture ids.  Room 1 row A is A1 NORMAL, A2 VIP, A3 NORMAL, an aisle
// at A4 and the couple pair A5-6; row B has B1.
const (
	RoomID     = 1
	ShowtimeID = 1
	BasePrice  = 100000

	SeatA1 = 1
	SeatA2 = 2
	SeatA3 = 3
	SeatA5 = 4
	SeatA6 = 5
	SeatB1 = 6

	PopcornID    = 1
	PopcornPrice = 50000

	OperatorA = 1
	OperatorB = 2
)

var fixture = []string{
	`INSERT INTO operators (id, email, password_hash, role) VALUES
		(1, 'a@pos.test', 'x', 'STAFF'), (2, 'b@pos.test', 'x', 'STAFF')`,
	`INSERT INTO rooms (id, name, row_count, col_count) VALUES (1, 'Room 1', 2, 6)`,
	`INSERT INTO seats (id, room_id, row_label, col_no, seat_number, seat_type) VALUES
		(1, 1, 'A', 1, 'A1', 'NORMAL'),
		(2, 1, 'A', 2, 'A2', 'VIP'),
		(3, 1, 'A', 3, 'A3', 'NORMAL'),
		(4, 1, 'A', 5, 'A5', 'COUPLE'),
		(5, 1, 'A', 6, 'A6', 'COUPLE'),
		(6, 1, 'B', 1, 'B1', 'NORMAL')`,
	`INSERT INTO showtimes (id, room_id, movie_title, starts_at, base_price) VALUES
		(1, 1, 'Dune', '2030-01-01 18:00:00', 100000)`,
	`INSERT INTO food_drinks (id, name, price) VALUES (1, 'Popcorn', 50000), (2, 'Soda', 30000)`,
	`INSERT INTO food_drinks (id, name, price, is_active) VALUES (3, 'Retired', 1000, FALSE)`,
}

// Start returns a migrated and seeded database.  The container is
// removed when the test ends.
func Start(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mysql:8.0",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "root",
				"MYSQL_DATABASE":      "cinema",
			},
			WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	opts := database.Options{User: "root", Pass: "root", Host: host, Port: port.Port(), Name: "cinema"}
	var db *sql.DB
	// the port opens before mysqld finishes initializing
	require.Eventually(t, func() bool {
		db, err = database.Open(opts)
		return err == nil
	}, time.Minute, time.Second)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db))
	for _, stmt := range fixture {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return db
}

// ExpireHolds backdates every hold so the next expiry check frees it.
func ExpireHolds(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`UPDATE seat_holds SET expires_at = UTC_TIMESTAMP() - INTERVAL 1 MINUTE`)
	require.NoError(t, err)
}
