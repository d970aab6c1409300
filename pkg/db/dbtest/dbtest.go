// Package dbtest opens throwaway sqlite databases carrying the auction schema.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/onauc-backend/pkg/db"
	"github.com/angelmondragon/onauc-backend/pkg/db/models"
)

// Schema mirrors the postgres migrations using sqlite types.
var Schema = []string{
	`CREATE TABLE categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at DATETIME
	)`,
	`CREATE TABLE listings (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		category_id TEXT NOT NULL REFERENCES categories(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		starting_price_cents INTEGER NOT NULL CHECK (starting_price_cents > 0),
		current_price_cents INTEGER NOT NULL,
		end_time DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME,
		updated_at DATETIME,
		CHECK (current_price_cents >= starting_price_cents)
	)`,
	`CREATE TABLE bids (
		id TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL REFERENCES listings(id),
		bidder_id TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL REFERENCES listings(id),
		bid_id TEXT NOT NULL REFERENCES bids(id),
		buyer_id TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_transactions_listing_id ON transactions(listing_id)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a client over a private in-memory database. The pool is pinned
// to one connection so concurrent transactions queue instead of failing.
func Open(t testing.TB) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range Schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db.FromGorm(conn)
}

// OutboxEvents returns the events written for one aggregate, oldest first.
func OutboxEvents(t testing.TB, conn *gorm.DB, aggregateID uuid.UUID) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	err := conn.Where("aggregate_id = ?", aggregateID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		t.Fatalf("list outbox events: %v", err)
	}
	return rows
}
