// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// schema creates the bookings table. The exclusion constraint is the storage
// backstop for the no-double-booking rule: no two rows in a confirmed status
// (1 paid, 2 approved-unpaid) may have intersecting [check_in, check_out)
// ranges.
const schema = `
CREATE TABLE IF NOT EXISTS bookings (
	id                    UUID PRIMARY KEY,
	booking_date          DATE        NOT NULL,
	check_in_date         DATE        NOT NULL,
	check_out_date        DATE        NOT NULL,
	payment_status        SMALLINT    NOT NULL DEFAULT 0,
	payment_type          TEXT        NOT NULL DEFAULT '',
	payment_amount        INTEGER     NOT NULL DEFAULT 0,
	guest_name            TEXT        NOT NULL,
	guest_email           TEXT        NOT NULL,
	guest_phone           TEXT        NOT NULL,
	guest_address         TEXT        NOT NULL DEFAULT '',
	total_guests_adults   INTEGER     NOT NULL DEFAULT 0,
	total_guests_children INTEGER     NOT NULL DEFAULT 0,
	id_type               TEXT        NOT NULL DEFAULT '',
	id_number             TEXT        NOT NULL DEFAULT '',
	purpose_of_stay       TEXT        NOT NULL DEFAULT '',
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL,

	CONSTRAINT bookings_dates_ordered CHECK (check_out_date > check_in_date),
	CONSTRAINT bookings_status_known  CHECK (payment_status IN (0, 1, 2)),
	CONSTRAINT bookings_no_confirmed_overlap
		EXCLUDE USING gist (daterange(check_in_date, check_out_date, '[)') WITH &&)
		WHERE (payment_status IN (1, 2))
);

CREATE INDEX IF NOT EXISTS bookings_status_check_in_idx
	ON bookings (payment_status, check_in_date);
`

// NewPool creates and validates a pgxpool connection pool.
// It retries up to 5 times to accommodate containers starting up.
func NewPool(ctx context.Context, cfg config.Database, log *logrus.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		log.WithFields(logrus.Fields{"attempt": attempt, "max": 5}).
			WithError(err).Warn("db connect failed, retrying in 2s")
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// Migrate applies the bookings schema. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
