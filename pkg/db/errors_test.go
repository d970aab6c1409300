package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsTransientConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgx serialization", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "pgx deadlock wrapped", err: fmt.Errorf("lock listing: %w", &pgconn.PgError{Code: "40P01"}), want: true},
		{name: "pgx unique violation", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "pq lock not available", err: &pq.Error{Code: "55P03"}, want: true},
		{name: "sqlite busy", err: errors.New("database is locked (5) (SQLITE_BUSY)"), want: true},
		{name: "plain", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientConflict(tt.err); got != tt.want {
				t.Fatalf("IsTransientConflict(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "ux_transactions_listing_id"`), "ux_transactions_listing_id") {
		t.Fatal("expected constraint match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: transactions.listing_id"), "") {
		t.Fatal("expected sqlite unique failure to match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is never a violation")
	}
}
