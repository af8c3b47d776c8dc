// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// initializeSchema creates the domain and receipt tables if they don't exist.
func (s *Store) initializeSchema(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return initializeSchemaInTx(ctx, tx)
	})
}

func initializeSchemaInTx(ctx context.Context, tx pgx.Tx) error {
	migrations := []string{
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS rooms (
			id         UUID PRIMARY KEY,
			number     TEXT NOT NULL UNIQUE,
			status     TEXT NOT NULL DEFAULT 'available',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS attendance_logs (
			staff_id    UUID NOT NULL,
			log_date    DATE NOT NULL,
			shift_value DOUBLE PRECISION NOT NULL,
			logged_by   TEXT NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (staff_id, log_date)
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS inventory_items (
			id                  UUID PRIMARY KEY,
			name                TEXT NOT NULL,
			current_stock       INTEGER NOT NULL DEFAULT 0 CHECK (current_stock >= 0),
			low_stock_threshold INTEGER NOT NULL DEFAULT 0,
			unit                TEXT NOT NULL DEFAULT '',
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS stock_movements (
			id             BIGSERIAL PRIMARY KEY,
			item_id        UUID NOT NULL REFERENCES inventory_items(id),
			quantity       INTEGER NOT NULL CHECK (quantity > 0),
			direction      TEXT NOT NULL CHECK (direction IN ('in','out')),
			recipient_name TEXT,
			notes          TEXT,
			created_by     TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		/*language=postgresql*/ `CREATE INDEX IF NOT EXISTS idx_stock_movements_item
			ON stock_movements (item_id, created_at)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS offline_sync_receipts (
			mutation_id  UUID PRIMARY KEY,
			action       TEXT NOT NULL,
			ok           BOOLEAN NOT NULL,
			error_code   TEXT NOT NULL DEFAULT '',
			conflict     BOOLEAN NOT NULL DEFAULT FALSE,
			processed_by TEXT NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for i, migration := range migrations {
		if _, err := tx.Exec(ctx, migration); err != nil {
			return fmt.Errorf("schema migration %d failed: %w", i, err)
		}
	}
	return nil
}
