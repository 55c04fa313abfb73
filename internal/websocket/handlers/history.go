package handlers

import (
	"fmt"

	"github.com/bhandras/zenith/internal/seed"
	"github.com/bhandras/zenith/internal/wire"
)

// LoadTwinHistory returns a read-only snapshot of the agent, mint, whisper
// and vault counters.
func LoadTwinHistory(deps Deps, doc *seed.Record, _ wire.Command) EventResult {
	return NewEventResult(wire.TwinHistoryMessage{
		Message:      wire.NewMessage(wire.CmdTwinHistory, deps.Now()),
		Agents:       cloneSection(*doc, seed.SectionAgents),
		TotalRuns:    doc.TotalRuns(),
		Mints:        cloneSection(*doc, seed.SectionMints),
		Whispers:     cloneSection(*doc, seed.SectionWhispers),
		VaultEntries: seed.CloneValue(doc.VaultEntries()),
	})
}

// Ping acknowledges with a timestamp and no side effects.
func Ping(deps Deps, _ *seed.Record, _ wire.Command) EventResult {
	return NewEventResult(wire.NewMessage(wire.CmdPong, deps.Now()))
}

// Unknown echoes an unrecognized command name back to its sender.
func Unknown(deps Deps, _ *seed.Record, cmd wire.Command) EventResult {
	return NewEventResult(wire.UnknownMessage{
		Message:  wire.NewMessage(wire.CmdUnknown, deps.Now()),
		Received: cmd.Name,
		Text:     fmt.Sprintf("Unknown command: %s", cmd.Name),
	})
}

func cloneSection(doc seed.Record, name string) map[string]any {
	return seed.CloneValue(doc.Section(name)).(map[string]any)
}
