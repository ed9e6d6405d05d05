package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema:
//
//	CREATE TABLE disabled_dates (
//	    id   UUID PRIMARY KEY,
//	    date DATE NOT NULL UNIQUE
//	);

type DisabledDateRepository struct {
	db *sqlx.DB
}

func NewDisabledDateRepository(db *sqlx.DB) *DisabledDateRepository {
	return &DisabledDateRepository{db: db}
}

func (r *DisabledDateRepository) ListDates(ctx context.Context) ([]string, error) {
	query := `SELECT to_char(date, 'YYYY-MM-DD') FROM disabled_dates ORDER BY date`

	var dates []string
	if err := r.db.SelectContext(ctx, &dates, query); err != nil {
		return nil, fmt.Errorf("failed to list disabled dates: %w", err)
	}
	return dates, nil
}
