package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// StorageClass groups database failures by how the auction engine reacts to
// them.
type StorageClass string

const (
	// StorageContention is a lost race (serialization failure, deadlock, lock
	// timeout); bid placement and settlement replay these.
	StorageContention StorageClass = "contention"
	// StorageDuplicate is a unique violation; on ux_transactions_listing_id it
	// means the listing was already settled by another worker.
	StorageDuplicate StorageClass = "duplicate"
	// StorageIntegrity covers foreign-key, not-null and check violations.
	StorageIntegrity StorageClass = "integrity"
	StorageOther     StorageClass = "other"
)

// constraintMeanings names the auction invariant behind each schema constraint.
var constraintMeanings = map[string]string{
	"ux_transactions_listing_id":          "listing already settled",
	"ux_categories_name":                  "category name taken",
	"bids_listing_id_fkey":                "bid references unknown listing",
	"listings_category_id_fkey":           "listing references unknown category",
	"transactions_listing_id_fkey":        "transaction references unknown listing",
	"transactions_bid_id_fkey":            "transaction references unknown bid",
	"listings_starting_price_cents_check": "starting price must be positive",
	"listings_check":                      "current price below starting price",
	"bids_amount_cents_check":             "bid amount must be positive",
}

// ErrorDump is the log-friendly view of an error chain.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string       `json:"pg_code,omitempty"`
	PGClass      StorageClass `json:"pg_class,omitempty"`
	PGConstraint string       `json:"pg_constraint,omitempty"`
	PGMeaning    string       `json:"pg_meaning,omitempty"`
	PGTable      string       `json:"pg_table,omitempty"`
	PGMessage    string       `json:"pg_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGMessage = pqErr.Message
	default:
		return d
	}

	d.PGClass = ClassifySQLState(d.PGCode)
	d.PGMeaning = constraintMeanings[d.PGConstraint]
	return d
}

// ClassifySQLState maps a Postgres SQLSTATE to a StorageClass.
func ClassifySQLState(code string) StorageClass {
	switch code {
	case "40001", "40P01", "55P03":
		return StorageContention
	case "23505":
		return StorageDuplicate
	case "23503", "23502", "23514":
		return StorageIntegrity
	case "":
		return ""
	default:
		return StorageOther
	}
}
