package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS reservations (
		id                   CHAR(36)     NOT NULL,
		user_id              BIGINT       NOT NULL,
		facility_id          BIGINT       NOT NULL,
		start_time           DATETIME(6)  NOT NULL,
		end_time             DATETIME(6)  NOT NULL,
		status               VARCHAR(16)  NOT NULL,
		total_price_cents    BIGINT       NOT NULL,
		currency             CHAR(3)      NOT NULL,
		notes                TEXT         NULL,
		payment_session_ref  VARCHAR(255) NULL,
		payment_provider_ref VARCHAR(255) NULL,
		calendar_event_id    VARCHAR(255) NULL,
		created_at           DATETIME(6)  NOT NULL,
		updated_at           DATETIME(6)  NOT NULL,
		PRIMARY KEY (id),
		KEY idx_reservations_facility_active (facility_id, status, start_time, end_time),
		KEY idx_reservations_user_start (user_id, start_time),
		KEY idx_reservations_user_end (user_id, end_time),
		CONSTRAINT chk_reservations_interval CHECK (end_time > start_time),
		CONSTRAINT chk_reservations_status CHECK (status IN ('PENDING', 'CONFIRMED', 'CANCELLED', 'COMPLETED'))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS facility_locks (
		facility_id BIGINT NOT NULL,
		PRIMARY KEY (facility_id)
	) ENGINE=InnoDB`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
