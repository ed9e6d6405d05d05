// Package cache holds process-scoped caches with explicit lifecycles.
package cache

import (
	"context"
	"fmt"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/slotwise/booking-api/internal/repository"
)

// DisabledDates is the in-memory set of administrator-blocked days. It is
// loaded once at startup and changes only through Reload, never implicitly.
// Entries never expire; Reload swaps the whole set.
type DisabledDates struct {
	repo  repository.DisabledDateRepository
	dates *gocache.Cache

	mu     sync.RWMutex
	loaded bool
}

func NewDisabledDates(repo repository.DisabledDateRepository) *DisabledDates {
	return &DisabledDates{
		repo:  repo,
		dates: gocache.New(gocache.NoExpiration, 0),
	}
}

// Reload fetches the current set from the store and replaces the cache
// contents. On error the previous set stays in place.
func (d *DisabledDates) Reload(ctx context.Context) (int, error) {
	dates, err := d.repo.ListDates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load disabled dates: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.dates.Flush()
	for _, date := range dates {
		d.dates.Set(date, struct{}{}, gocache.NoExpiration)
	}
	d.loaded = true
	return len(dates), nil
}

// Contains reports whether the YYYY-MM-DD date is blocked.
func (d *DisabledDates) Contains(date string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, found := d.dates.Get(date)
	return found
}

// Loaded reports whether at least one Reload has succeeded; a false value
// means the set may be stale-empty after a failed startup load.
func (d *DisabledDates) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// Count returns the number of blocked days currently cached.
func (d *DisabledDates) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dates.ItemCount()
}
