// Package autosave periodically persists the seed and tells every connected
// client about it.
package autosave

import (
	"context"
	"time"

	"github.com/bhandras/zenith/internal/logger"
	"github.com/bhandras/zenith/internal/seed"
	"github.com/bhandras/zenith/internal/wire"
)

// Persister saves the seed and returns the snapshot that was written and the
// sequence number of the last change it includes.
type Persister interface {
	Persist() (seed.Record, uint64, error)
}

// Broadcaster sends a message to every open connection.
type Broadcaster interface {
	Broadcast(msg any) int
}

// Scheduler fires an autosave on a fixed interval.
type Scheduler struct {
	interval  time.Duration
	persister Persister
	clients   Broadcaster
	now       func() time.Time
}

// New creates a scheduler. It does nothing until Run is called.
func New(interval time.Duration, persister Persister, clients Broadcaster) *Scheduler {
	return &Scheduler{
		interval:  interval,
		persister: persister,
		clients:   clients,
		now:       time.Now,
	}
}

// Run ticks until ctx is cancelled. It always returns nil so it can run in an
// errgroup next to the HTTP server.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Infof("[Autosave] Every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Debugf("[Autosave] Stopped")
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick performs one autosave: persist, then broadcast the saved seed. A save
// failure is logged and the broadcast still goes out.
func (s *Scheduler) Tick() {
	logger.Infof("[Autosave] Auto-save triggered")

	snapshot, seq, err := s.persister.Persist()
	if err != nil {
		logger.Errorf("[Autosave] Save failed: %v", err)
	}

	n := s.clients.Broadcast(wire.AutoSaveMessage{
		SeedMessage: wire.SeedMessage{
			Message: wire.NewMessage(wire.CmdAutoSave, s.now()),
			Seed:    snapshot,
		},
		Seq: seq,
	})
	logger.Debugf("[Autosave] Notified %d clients", n)
}
