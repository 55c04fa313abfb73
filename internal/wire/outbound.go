package wire

import (
	"encoding/json"
	"time"

	"github.com/bhandras/zenith/internal/seed"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Outbound command names.
const (
	CmdSeedData          = "seed_data"
	CmdSeedRecalled      = "seed_recalled"
	CmdSeedUpdated       = "seed_updated"
	CmdSeedChanged       = "seed_changed"
	CmdAutonomyConfirmed = "autonomy_confirmed"
	CmdTwinHistory       = "twin_history"
	CmdPong              = "pong"
	CmdUnknown           = "unknown"
	CmdError             = "error"
	CmdAutoSave          = "auto_save"
	CmdShutdown          = "shutdown"
)

// Timestamp formats t for the ts field.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Message is the common outbound envelope header.
type Message struct {
	Cmd string `json:"cmd"`
	TS  string `json:"ts"`
}

// NewMessage builds a bare {cmd, ts} message.
func NewMessage(cmd string, at time.Time) Message {
	return Message{Cmd: cmd, TS: Timestamp(at)}
}

// SeedMessage carries the full seed (seed_data, seed_recalled, seed_updated).
type SeedMessage struct {
	Message
	Seed seed.Record `json:"seed"`
}

// AutoSaveMessage is the periodic full snapshot. Seq is the sequence number
// of the last change the snapshot includes.
type AutoSaveMessage struct {
	SeedMessage
	Seq uint64 `json:"seq"`
}

// ErrorMessage reports a rejected command to its sender.
type ErrorMessage struct {
	Message
	Text string `json:"message"`
}

// UnknownMessage echoes an unrecognized command name.
type UnknownMessage struct {
	Message
	Received string `json:"received"`
	Text     string `json:"message"`
}

// ConstitutionMessage confirms the autonomy override.
type ConstitutionMessage struct {
	Message
	Constitution map[string]any `json:"constitution"`
}

// TwinHistoryMessage is the read-only history snapshot.
type TwinHistoryMessage struct {
	Message
	Agents       map[string]any `json:"agents"`
	TotalRuns    json.Number    `json:"total_runs"`
	Mints        map[string]any `json:"mints"`
	Whispers     map[string]any `json:"whispers"`
	VaultEntries any            `json:"vault_entries"`
}

// ChangeMessage tells other clients how the seed changed, as an RFC 7386
// merge patch. Seq increases by one per change.
type ChangeMessage struct {
	Message
	Seq   uint64          `json:"seq"`
	Patch json.RawMessage `json:"patch"`
}
