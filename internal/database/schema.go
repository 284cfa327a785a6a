package database

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
)

// schema is applied statement by statement; the driver runs without
// multiStatements.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS operators (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('STAFF','MANAGER') NOT NULL DEFAULT 'STAFF',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		operator_id BIGINT UNSIGNED NOT NULL,
		token_hash  CHAR(64) NOT NULL UNIQUE,
		expires_at  DATETIME NOT NULL,
		revoked_at  DATETIME NULL,
		CONSTRAINT fk_refresh_operator FOREIGN KEY (operator_id) REFERENCES operators(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id        BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name      VARCHAR(100) NOT NULL,
		row_count INT NOT NULL,
		col_count INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS seat_types (
		code        VARCHAR(16) PRIMARY KEY,
		extra_price BIGINT NOT NULL DEFAULT 0
	)`,
	`INSERT IGNORE INTO seat_types (code, extra_price) VALUES ('NORMAL', 0), ('VIP', 20000), ('COUPLE', 30000)`,
	`CREATE TABLE IF NOT EXISTS seats (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room_id     BIGINT UNSIGNED NOT NULL,
		row_label   VARCHAR(4) NOT NULL,
		col_no      INT NOT NULL,
		seat_number VARCHAR(8) NOT NULL,
		seat_type   VARCHAR(16) NOT NULL DEFAULT 'NORMAL',
		UNIQUE KEY uq_seat_position (room_id, row_label, col_no),
		CONSTRAINT fk_seat_room FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
		CONSTRAINT fk_seat_type FOREIGN KEY (seat_type) REFERENCES seat_types(code)
	)`,
	`CREATE TABLE IF NOT EXISTS showtimes (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room_id     BIGINT UNSIGNED NOT NULL,
		movie_title VARCHAR(255) NOT NULL,
		starts_at   DATETIME NOT NULL,
		base_price  BIGINT NOT NULL,
		CONSTRAINT fk_showtime_room FOREIGN KEY (room_id) REFERENCES rooms(id)
	)`,
	`CREATE TABLE IF NOT EXISTS show_seats (
		showtime_id BIGINT UNSIGNED NOT NULL,
		seat_id     BIGINT UNSIGNED NOT NULL,
		status      ENUM('FREE','HELD','BOOKED') NOT NULL DEFAULT 'FREE',
		version     BIGINT UNSIGNED NOT NULL DEFAULT 0,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (showtime_id, seat_id),
		KEY idx_show_seats_status (showtime_id, status),
		CONSTRAINT fk_show_seat_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes(id) ON DELETE CASCADE,
		CONSTRAINT fk_show_seat_seat FOREIGN KEY (seat_id) REFERENCES seats(id)
	)`,
	`CREATE TABLE IF NOT EXISTS seat_holds (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		operator_id BIGINT UNSIGNED NOT NULL,
		showtime_id BIGINT UNSIGNED NOT NULL,
		seat_id     BIGINT UNSIGNED NOT NULL,
		hold_token  CHAR(36) NOT NULL,
		expires_at  DATETIME NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_hold_seat (showtime_id, seat_id),
		KEY idx_hold_expiry (expires_at),
		CONSTRAINT fk_hold_operator FOREIGN KEY (operator_id) REFERENCES operators(id)
	)`,
	`CREATE TABLE IF NOT EXISTS food_drinks (
		id        BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name      VARCHAR(100) NOT NULL,
		price     BIGINT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		operator_id    BIGINT UNSIGNED NOT NULL,
		showtime_id    BIGINT UNSIGNED NOT NULL,
		booking_type   ENUM('OFFLINE','ONLINE') NOT NULL,
		payment_method ENUM('PAY_ON_PICKUP','PREPAID') NOT NULL,
		status         VARCHAR(32) NOT NULL,
		total_price    BIGINT NOT NULL,
		payment_ref    VARCHAR(128) NULL,
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_booking_operator FOREIGN KEY (operator_id) REFERENCES operators(id),
		CONSTRAINT fk_booking_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes(id)
	)`,
	`CREATE TABLE IF NOT EXISTS booking_seats (
		booking_id  BIGINT UNSIGNED NOT NULL,
		showtime_id BIGINT UNSIGNED NOT NULL,
		seat_id     BIGINT UNSIGNED NOT NULL,
		price       BIGINT NOT NULL,
		PRIMARY KEY (booking_id, seat_id),
		UNIQUE KEY uq_booked_seat (showtime_id, seat_id),
		CONSTRAINT fk_booking_seat_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS booking_food_drinks (
		booking_id    BIGINT UNSIGNED NOT NULL,
		food_drink_id BIGINT UNSIGNED NOT NULL,
		quantity      INT NOT NULL,
		unit_price    BIGINT NOT NULL,
		PRIMARY KEY (booking_id, food_drink_id),
		CONSTRAINT fk_booking_fd_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE,
		CONSTRAINT fk_booking_fd_item FOREIGN KEY (food_drink_id) REFERENCES food_drinks(id)
	)`,
}

// Migrate creates any missing table.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "schema statement %d", i)
		}
	}
	return nil
}
