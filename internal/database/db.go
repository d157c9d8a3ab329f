package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the application tables when they do not exist.
// The unique key on booking_seats (event_date, seat_label) is the
// atomic guard against double allocation: two racing initiations for
// the same seat resolve at insert time, not in application code.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			email         VARCHAR(255) NOT NULL UNIQUE,
			name          VARCHAR(255) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL DEFAULT '',
			role          VARCHAR(16)  NOT NULL DEFAULT 'CUSTOMER',
			created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS system_settings (
			id                      BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			reservation_open_date   DATE NOT NULL,
			reservation_close_date  DATE NOT NULL,
			default_total_seats     INT NOT NULL DEFAULT 100,
			seat_capacity_overrides TEXT NOT NULL,
			event_times             TEXT NOT NULL,
			working_days            TEXT NOT NULL,
			blocked_dates           TEXT NOT NULL,
			max_seats_per_user      INT NOT NULL DEFAULT 2,
			min_cancellation_hours  INT NOT NULL DEFAULT 2,
			created_at              TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at              TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id                     BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id                BIGINT UNSIGNED NOT NULL,
			event_date             DATE NOT NULL,
			status                 VARCHAR(16) NOT NULL,
			ticket_id              VARCHAR(32) NULL UNIQUE,
			reservation_token_hash CHAR(64) NOT NULL DEFAULT '',
			qr_payload             TEXT NOT NULL,
			calendar_link          TEXT NOT NULL,
			hold_expires_at        DATETIME NOT NULL,
			created_at             TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at             TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_bookings_user_date (user_id, event_date),
			KEY idx_bookings_date_status (event_date, status)
		)`,
		`CREATE TABLE IF NOT EXISTS booking_seats (
			id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			booking_id BIGINT UNSIGNED NOT NULL,
			event_date DATE NOT NULL,
			seat_label VARCHAR(8) NOT NULL,
			UNIQUE KEY uq_seat_per_date (event_date, seat_label),
			KEY idx_booking_seats_booking (booking_id)
		)`,
		`CREATE TABLE IF NOT EXISTS otps (
			id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			email      VARCHAR(255) NOT NULL UNIQUE,
			code       CHAR(6) NOT NULL,
			booking_id BIGINT UNSIGNED NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
