package store

import (
	"context"
	"time"

	"github.com/bhandras/zenith/internal/logger"
	"github.com/bhandras/zenith/internal/seed"
)

// Journal is the subset of database.Journal used to record saves.
type Journal interface {
	Append(ctx context.Context, at time.Time, body []byte) error
	Prune(ctx context.Context, keep int) (int64, error)
}

// Journaled wraps a Store and appends every successfully saved snapshot to a
// journal. Journal failures are logged and never fail the save.
type Journaled struct {
	Store
	journal Journal
	keep    int
	now     func() time.Time
}

// NewJournaled decorates s so that successful saves are journaled, retaining
// at most keep snapshots.
func NewJournaled(s Store, journal Journal, keep int) *Journaled {
	return &Journaled{
		Store:   s,
		journal: journal,
		keep:    keep,
		now:     time.Now,
	}
}

// Save persists rec through the wrapped store and then journals it.
func (j *Journaled) Save(rec seed.Record) error {
	if err := j.Store.Save(rec); err != nil {
		return err
	}

	body, err := rec.MarshalIndent()
	if err != nil {
		logger.Warnf("[Journal] Failed to encode snapshot: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := j.journal.Append(ctx, j.now(), body); err != nil {
		logger.Warnf("[Journal] %v", err)
		return nil
	}
	if n, err := j.journal.Prune(ctx, j.keep); err != nil {
		logger.Warnf("[Journal] %v", err)
	} else if n > 0 {
		logger.Debugf("[Journal] Pruned %d snapshots", n)
	}
	return nil
}
