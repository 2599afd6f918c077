package loader

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/listing"
)

// PostgresLoader reads the collection straight from the platform database.
//
// Expected table (owned by the listings service, read-only here):
//
//	CREATE TABLE properties (
//	    id                  TEXT PRIMARY KEY,
//	    title               TEXT,
//	    city                TEXT,
//	    region              TEXT,
//	    property_type       TEXT,
//	    rent_amount         DOUBLE PRECISION,
//	    currency            TEXT,
//	    is_verified         BOOLEAN,
//	    availability_status TEXT,
//	    images              JSONB,
//	    amenities           JSONB,
//	    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresLoader struct {
	db *sql.DB
}

func NewPostgresLoader(db *sql.DB) *PostgresLoader {
	return &PostgresLoader{db: db}
}

const selectProperties = `
SELECT id, title, city, region, property_type, rent_amount, currency,
       is_verified, availability_status, images, amenities
FROM properties
ORDER BY created_at DESC, id`

func (l *PostgresLoader) Load(ctx context.Context) ([]listing.Listing, error) {
	rows, err := l.db.QueryContext(ctx, selectProperties)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	listings := make([]listing.Listing, 0, 256)
	for rows.Next() {
		var (
			id                            string
			title, city, region, category sql.NullString
			currency, availability        sql.NullString
			price                         sql.NullFloat64
			verified                      sql.NullBool
			images, amenities             []byte
		)
		if err := rows.Scan(&id, &title, &city, &region, &category, &price, &currency,
			&verified, &availability, &images, &amenities); err != nil {
			return nil, fmt.Errorf("scanning property row: %w", err)
		}
		listings = append(listings, listing.Normalize(listing.Listing{
			ID:           id,
			Title:        title.String,
			City:         city.String,
			Region:       region.String,
			Category:     category.String,
			Price:        price.Float64,
			Currency:     currency.String,
			Verified:     verified.Bool,
			Availability: listing.Availability(availability.String),
			Images:       jsonStrings(images),
			Amenities:    jsonStrings(amenities),
		}))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}
	return listings, nil
}

// jsonStrings decodes a JSON array of strings, yielding an empty list for
// NULL, malformed, or non-array values.
func jsonStrings(raw []byte) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
