package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/onauc-backend/pkg/enums"
)

// AuctionTables are created by the shipped migrations, in dependency order.
var AuctionTables = []string{"categories", "listings", "bids", "transactions", "outbox_events"}

// TableState describes one auction table as seen by the connected database.
type TableState struct {
	Table   string
	Present bool
	Rows    int64
}

// SchemaReport summarizes the auction schema after migrations.
type SchemaReport struct {
	Tables           []TableState
	ListingsByStatus map[enums.ListingStatus]int64
}

// Complete reports whether every auction table exists.
func (r SchemaReport) Complete() bool {
	for _, table := range r.Tables {
		if !table.Present {
			return false
		}
	}
	return len(r.Tables) > 0
}

// Missing lists the auction tables the database does not have yet.
func (r SchemaReport) Missing() []string {
	var missing []string
	for _, table := range r.Tables {
		if !table.Present {
			missing = append(missing, table.Table)
		}
	}
	return missing
}

// InspectSchema checks each auction table and counts its rows. Listings are
// also broken down by status so an operator can see the settlement backlog.
func InspectSchema(ctx context.Context, conn *gorm.DB) (SchemaReport, error) {
	report := SchemaReport{ListingsByStatus: map[enums.ListingStatus]int64{}}
	if conn == nil {
		return report, fmt.Errorf("db is required")
	}
	conn = conn.WithContext(ctx)
	migrator := conn.Migrator()

	for _, table := range AuctionTables {
		state := TableState{Table: table, Present: migrator.HasTable(table)}
		if state.Present {
			if err := conn.Table(table).Count(&state.Rows).Error; err != nil {
				return report, fmt.Errorf("count %s: %w", table, err)
			}
		}
		report.Tables = append(report.Tables, state)
	}

	if !migrator.HasTable("listings") {
		return report, nil
	}
	var rows []struct {
		Status enums.ListingStatus
		Total  int64
	}
	err := conn.Table("listings").
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return report, fmt.Errorf("count listings by status: %w", err)
	}
	for _, row := range rows {
		report.ListingsByStatus[row.Status] = row.Total
	}
	return report, nil
}
