package handlers

import (
	"sort"

	"github.com/bhandras/zenith/internal/seed"
	"github.com/bhandras/zenith/internal/wire"
)

// HandlerFunc runs one command against the seed. Handlers are invoked with
// exclusive access to doc and may replace it.
type HandlerFunc func(deps Deps, doc *seed.Record, cmd wire.Command) EventResult

var registry = map[string]HandlerFunc{
	"save_seed":         GetSeed,
	"get_seed":          GetSeed,
	"recall_seed":       RecallSeed,
	"update_seed":       UpdateSeed,
	"autonomy_full":     AutonomyFull,
	"load_twin_history": LoadTwinHistory,
	"ping":              Ping,
}

// mutating lists the commands that can change the seed.
var mutating = map[string]bool{
	"recall_seed":   true,
	"update_seed":   true,
	"autonomy_full": true,
}

// Mutates reports whether the named command can change the seed.
func Mutates(name string) bool {
	return mutating[name]
}

// Lookup returns the handler for a command name. Unrecognized names resolve
// to Unknown.
func Lookup(name string) HandlerFunc {
	if h, ok := registry[name]; ok {
		return h
	}
	return Unknown
}

// Commands lists the recognized command names in sorted order.
func Commands() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
