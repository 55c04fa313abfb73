package handlers

import (
	"time"

	"github.com/bhandras/zenith/internal/seed"
)

// SeedStore is the subset of store.Store used by command handlers.
type SeedStore interface {
	Load() (seed.Record, error)
	Save(seed.Record) error
}

// Deps holds the narrow dependencies required by command handlers.
type Deps struct {
	store SeedStore
	now   func() time.Time
}

// NewDeps builds a dependency bundle for handler calls.
func NewDeps(store SeedStore, now func() time.Time) Deps {
	return Deps{
		store: store,
		now:   now,
	}
}

func (d Deps) Store() SeedStore { return d.store }
func (d Deps) Now() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}
