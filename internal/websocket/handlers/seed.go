package handlers

import (
	"errors"

	"github.com/bhandras/zenith/internal/logger"
	"github.com/bhandras/zenith/internal/seed"
	"github.com/bhandras/zenith/internal/wire"
)

// ErrBadPayload is reported when update_seed is given a non-object payload.
var ErrBadPayload = errors.New("update_seed requires an object payload")

// persist saves doc and logs a failure. The caller is not told about save
// failures; the in-memory seed stays authoritative until the next save.
func persist(deps Deps, doc seed.Record) {
	if err := deps.Store().Save(doc); err != nil {
		logger.Errorf("[Seed] Save failed: %v", err)
		return
	}
	logger.Debugf("[Seed] Seed saved")
}

// GetSeed persists the current seed and returns it. It serves both
// save_seed and get_seed.
func GetSeed(deps Deps, doc *seed.Record, _ wire.Command) EventResult {
	persist(deps, *doc)
	return NewEventResult(wire.SeedMessage{
		Message: wire.NewMessage(wire.CmdSeedData, deps.Now()),
		Seed:    doc.Clone(),
	})
}

// RecallSeed reloads the seed from the store, discarding unsaved changes.
// When the load fails the in-memory seed is left untouched.
func RecallSeed(deps Deps, doc *seed.Record, _ wire.Command) EventResult {
	ts := deps.Now()

	loaded, err := deps.Store().Load()
	if err != nil {
		logger.Errorf("[Seed] Recall failed: %v", err)
		return NewEventResult(wire.ErrorMessage{
			Message: wire.NewMessage(wire.CmdError, ts),
			Text:    "recall_seed failed: " + err.Error(),
		})
	}

	*doc = loaded
	logger.Infof("[Seed] Seed recalled from store")
	return newChangedResult(wire.SeedMessage{
		Message: wire.NewMessage(wire.CmdSeedRecalled, ts),
		Seed:    doc.Clone(),
	})
}

// UpdateSeed deep-merges an object payload into the seed and persists it.
func UpdateSeed(deps Deps, doc *seed.Record, cmd wire.Command) EventResult {
	ts := deps.Now()

	patch, ok := cmd.Payload.(map[string]any)
	if !ok {
		return NewEventResult(wire.ErrorMessage{
			Message: wire.NewMessage(wire.CmdError, ts),
			Text:    ErrBadPayload.Error(),
		})
	}

	*doc = seed.Record(seed.Merge(*doc, patch))
	persist(deps, *doc)

	return newChangedResult(wire.SeedMessage{
		Message: wire.NewMessage(wire.CmdSeedUpdated, ts),
		Seed:    doc.Clone(),
	})
}
