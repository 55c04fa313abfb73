package websocket

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bhandras/zenith/internal/logger"
	"github.com/bhandras/zenith/internal/seed"
	"github.com/bhandras/zenith/internal/websocket/handlers"
	"github.com/bhandras/zenith/internal/wire"
	jsonpatch "github.com/evanphx/json-patch"
)

// Dispatcher owns the seed document. Every read and write of the seed goes
// through it, and each command (including its save) runs to completion under
// one lock before the next command, autosave tick or health read proceeds.
//
// Messages are sent after the lock is released, so two changes may reach a
// client out of order. Every change therefore gets a sequence number,
// assigned under the lock, which seed_changed and auto_save carry as seq.
// A client drops any seed_changed whose seq is not above the last seq it
// applied, and treats auto_save as a full snapshot at its seq.
type Dispatcher struct {
	mu   sync.Mutex
	doc  seed.Record
	seq  uint64
	deps handlers.Deps
	hub  *Hub
}

// NewDispatcher takes ownership of doc.
func NewDispatcher(doc seed.Record, deps handlers.Deps, hub *Hub) *Dispatcher {
	if doc == nil {
		doc = seed.Record{}
	}
	return &Dispatcher{
		doc:  doc,
		deps: deps,
		hub:  hub,
	}
}

// Outcome is the encoded result of one command.
type Outcome struct {
	// Reply is the message for the sender.
	Reply []byte
	// Patch is the RFC 7386 merge patch describing the change to the seed,
	// or nil when the seed did not change.
	Patch []byte
	// Seq is the sequence number of the change. Zero when Patch is nil.
	Seq uint64
}

// Dispatch decodes one inbound frame from c, runs it, replies to c and fans
// any resulting change out to the other open clients. The fan-out happens
// even when the reply cannot be delivered, since the change is already
// committed.
func (d *Dispatcher) Dispatch(c *Client, raw []byte) {
	cmd := wire.DecodeCommand(raw)
	if cmd.Bare {
		logger.Debugf("[WebSocket] Plain-text command %q from %s", cmd.Name, c.ID())
	} else {
		logger.Tracef("[WebSocket] Command %q from %s", cmd.Name, c.ID())
	}

	out, err := d.Handle(cmd)
	if err != nil {
		logger.Errorf("[WebSocket] Command %q failed: %v", cmd.Name, err)
		return
	}

	if err := d.hub.Unicast(c, out.Reply); err != nil {
		logger.Debugf("[WebSocket] Reply to %s not delivered: %v", c.ID(), err)
	}

	if out.Patch != nil {
		change := wire.ChangeMessage{
			Message: wire.NewMessage(wire.CmdSeedChanged, d.deps.Now()),
			Seq:     out.Seq,
			Patch:   json.RawMessage(out.Patch),
		}
		if n := d.hub.BroadcastExcept(change, c.ID()); n > 0 {
			logger.Debugf("[WebSocket] Change %d from %s sent to %d clients", out.Seq, c.ID(), n)
		}
	}
}

// Handle runs cmd against the seed and returns the encoded reply and change
// patch.
func (d *Dispatcher) Handle(cmd wire.Command) (Outcome, error) {
	reply, before, after, seq, err := d.run(cmd)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Reply: reply}
	if after == nil {
		return out, nil
	}

	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		logger.Warnf("[WebSocket] Failed to diff seed after %q: %v", cmd.Name, err)
		return out, nil
	}
	if string(patch) != "{}" {
		out.Patch = patch
		out.Seq = seq
	}
	return out, nil
}

// run is the critical section. The seed is only encoded for commands that
// can change it, and before/after are only set when the handler reports a
// change.
func (d *Dispatcher) run(cmd wire.Command) (reply, before, after []byte, seq uint64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mutates := handlers.Mutates(cmd.Name)
	if mutates {
		before, err = json.Marshal(d.doc)
		if err != nil {
			return nil, nil, nil, 0, fmt.Errorf("marshal seed: %w", err)
		}
	}

	res := handlers.Lookup(cmd.Name)(d.deps, &d.doc, cmd)

	reply, err = json.Marshal(res.Reply())
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("marshal reply: %w", err)
	}

	if !mutates || !res.Changed() {
		return reply, nil, nil, 0, nil
	}
	after, err = json.Marshal(d.doc)
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("marshal seed: %w", err)
	}
	if string(before) == string(after) {
		return reply, nil, nil, 0, nil
	}
	d.seq++
	return reply, before, after, d.seq, nil
}

// Snapshot returns a deep copy of the current seed.
func (d *Dispatcher) Snapshot() seed.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Clone()
}

// Persist saves the seed and returns the snapshot that was written along
// with the sequence number of the last change it includes. The save holds
// the lock, so no command can mutate the seed mid-write.
func (d *Dispatcher) Persist() (seed.Record, uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.deps.Store().Save(d.doc); err != nil {
		return d.doc.Clone(), d.seq, err
	}
	return d.doc.Clone(), d.seq, nil
}
