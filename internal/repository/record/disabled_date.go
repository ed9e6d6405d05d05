package record

import (
	"context"

	"github.com/slotwise/booking-api/internal/repository/recordstore"
)

const fieldDate = "Date"

type DisabledDateRepository struct {
	store recordstore.Store
	table string
}

func NewDisabledDateRepository(store recordstore.Store, table string) *DisabledDateRepository {
	return &DisabledDateRepository{store: store, table: table}
}

// ListDates returns the blocked days as YYYY-MM-DD strings. Date fields may
// carry a time component depending on how the column is configured; only
// the date part matters.
func (r *DisabledDateRepository) ListDates(ctx context.Context) ([]string, error) {
	records, err := r.store.ListRecords(ctx, r.table, nil)
	if err != nil {
		return nil, err
	}

	var dates []string
	for _, rec := range records {
		d := rec.StringField(fieldDate)
		if len(d) >= 10 {
			dates = append(dates, d[:10])
		}
	}
	return dates, nil
}
