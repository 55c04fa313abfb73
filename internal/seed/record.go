// Package seed models the single JSON document ("the seed") the server keeps
// in memory, and the deep merge applied to it by update commands.
//
// A Record is schema-less: it is the generic tree produced by decoding JSON
// with json.Decoder.UseNumber, so values are one of string, json.Number,
// bool, nil, []any or map[string]any. Named sections such as "constitution"
// or "vault" are looked up by key and a missing section reads as empty.
package seed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Record is the root of the seed document. It is always an object.
type Record map[string]any

// Well-known top-level sections.
const (
	SectionIdentity     = "identity"
	SectionConstitution = "constitution"
	SectionAgents       = "agents"
	SectionVault        = "vault"
	SectionTunnel       = "tunnel"
	SectionMints        = "mints"
	SectionWhispers     = "whispers"
	SectionRuns         = "runs"
	SectionCommands     = "commands"
)

// ErrNotObject is returned by Decode when the JSON root is not an object.
var ErrNotObject = errors.New("seed root is not a JSON object")

// Decode parses raw JSON into a Record. Numbers are kept as json.Number so
// that a load/save cycle reproduces them exactly.
func Decode(raw []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after seed document")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Record(obj), nil
}

// DecodeValue parses a single arbitrary JSON value with UseNumber semantics.
func DecodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// MarshalIndent renders the record in the stable, human-readable on-disk
// form: two-space indentation and sorted keys.
func (r Record) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(map[string]any(r), "", "  ")
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Record(cloneMap(r))
}

// CloneValue returns a deep copy of any value found in a Record.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Record:
		return Record(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// Section returns the named top-level mapping. A missing or non-mapping
// section yields an empty, detached map.
func (r Record) Section(name string) map[string]any {
	if m, ok := asMap(r[name]); ok {
		return m
	}
	return map[string]any{}
}

// HasSection reports whether the named top-level value is a mapping.
func (r Record) HasSection(name string) bool {
	_, ok := asMap(r[name])
	return ok
}

// Lookup walks nested mappings along path and returns the value found.
func (r Record) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(r)
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path, or fallback when absent or not a string.
func (r Record) String(fallback string, path ...string) string {
	v, ok := r.Lookup(path...)
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

// Number returns the numeric value at path, or fallback. Numbers are
// returned as json.Number so they serialize unchanged.
func (r Record) Number(fallback json.Number, path ...string) json.Number {
	v, ok := r.Lookup(path...)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case json.Number:
		return n
	case float64:
		return json.Number(fmt.Sprint(n))
	case int:
		return json.Number(fmt.Sprint(n))
	case int64:
		return json.Number(fmt.Sprint(n))
	default:
		return fallback
	}
}

// TotalRuns returns runs.total, or 0.
func (r Record) TotalRuns() json.Number {
	return r.Number("0", SectionRuns, "total")
}

// VaultStatus returns vault.status, or "UNKNOWN".
func (r Record) VaultStatus() string {
	return r.String("UNKNOWN", SectionVault, "status")
}

// VaultEntries returns vault.entries as stored, or 0 when the vault section
// is missing.
func (r Record) VaultEntries() any {
	if v, ok := r.Lookup(SectionVault, "entries"); ok {
		return v
	}
	return json.Number("0")
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return map[string]any(m), true
	default:
		return nil, false
	}
}
