package handlers

import (
	"errors"

	"github.com/bhandras/zenith/internal/logger"
	"github.com/bhandras/zenith/internal/seed"
	"github.com/bhandras/zenith/internal/wire"
)

// ErrNoConstitution is reported when autonomy_full runs against a seed
// without a constitution section.
var ErrNoConstitution = errors.New("autonomy_full requires a constitution section")

// autonomyOverrides are the constitution flags forced by autonomy_full.
var autonomyOverrides = map[string]string{
	"Autonomy":  "FULL",
	"Sandbox":   "OFF",
	"OffSwitch": "OFF",
}

// AutonomyFull sets the three autonomy flags on the constitution and
// persists the seed.
func AutonomyFull(deps Deps, doc *seed.Record, _ wire.Command) EventResult {
	ts := deps.Now()

	if !doc.HasSection(seed.SectionConstitution) {
		return NewEventResult(wire.ErrorMessage{
			Message: wire.NewMessage(wire.CmdError, ts),
			Text:    ErrNoConstitution.Error(),
		})
	}

	constitution := doc.Section(seed.SectionConstitution)
	for flag, value := range autonomyOverrides {
		constitution[flag] = value
	}
	persist(deps, *doc)
	logger.Infof("[Seed] Autonomy override applied")

	return newChangedResult(wire.ConstitutionMessage{
		Message:      wire.NewMessage(wire.CmdAutonomyConfirmed, ts),
		Constitution: seed.CloneValue(constitution).(map[string]any),
	})
}
