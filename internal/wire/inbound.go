// Package wire defines the websocket message shapes exchanged with clients.
package wire

import (
	"encoding/json"
	"strings"

	"github.com/bhandras/zenith/internal/seed"
)

// Command is a decoded inbound request.
type Command struct {
	// Name is the command name, e.g. "update_seed".
	Name string
	// Payload is the decoded payload, or nil.
	Payload any
	// Bare is true when the frame was not a JSON object and was taken as a
	// plain-text command name.
	Bare bool
}

// DecodeCommand decodes one inbound frame.
//
// Frames are first parsed as a JSON envelope {cmd|command, payload|data}.
// Anything that is not a JSON object falls back to a bare command: the raw
// text, trimmed and lower-cased, with no payload.
func DecodeCommand(raw []byte) Command {
	if cmd, ok := decodeEnvelope(raw); ok {
		return cmd
	}
	return decodeBare(raw)
}

func decodeEnvelope(raw []byte) (Command, bool) {
	v, err := seed.DecodeValue(raw)
	if err != nil {
		return Command{}, false
	}
	env, ok := v.(map[string]any)
	if !ok {
		// Valid JSON that is not an object ("ping", 42) is read as bare text
		// rather than dispatched with an empty name.
		return Command{}, false
	}

	name := firstNonEmptyString(env["cmd"], env["command"])

	var payload any
	switch {
	case truthy(env["payload"]):
		payload = env["payload"]
	case truthy(env["data"]):
		payload = env["data"]
	}

	return Command{Name: name, Payload: payload}, true
}

func decodeBare(raw []byte) Command {
	return Command{
		Name: strings.ToLower(strings.TrimSpace(string(raw))),
		Bare: true,
	}
}

func firstNonEmptyString(values ...any) string {
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// truthy reports whether an envelope field counts as present: null, false,
// zero and the empty string do not.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}
