// Next-action counting.
//
// A NextActionMessage asks: across every object, how often does each action
// immediately follow a given sequence of actions? It is answered with one
// full scan. Events without an action (ActionID 0) carry only properties
// and are skipped when matching sequences.
package sky

import (
	"fmt"
	"io"
	"slices"

	json "github.com/goccy/go-json"
)

// NextActionMessage is a request for next-action counts.
type NextActionMessage struct {
	PriorActionIDs []uint32 `json:"priorActionIds"`
}

// Pack writes m as JSON.
func (m *NextActionMessage) Pack(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("pack next action message: %w", err)
	}
	return nil
}

// Unpack reads a message written by Pack.
func (m *NextActionMessage) Unpack(r io.Reader) error {
	if err := json.NewDecoder(r).Decode(m); err != nil {
		return fmt.Errorf("%w: next action message: %w", ErrCorruptFormat, err)
	}
	return nil
}

// Process scans of and counts, for every place where the prior actions
// occur as consecutive actions of one path, the action that comes next.
// With no prior actions every action is counted. If w is not nil the
// counts are also written to it as a JSON object keyed by action id.
func (m *NextActionMessage) Process(of *ObjectFile, w io.Writer) (map[uint32]uint64, error) {
	counts := make(map[uint32]uint64)
	prior := m.PriorActionIDs
	var actions []uint32

	it := NewPathIterator(of)
	c := NewCursor(nil)
	if err := it.Next(c); err != nil {
		return nil, err
	}
	for !it.EOF() {
		actions = actions[:0]
		for !c.EOF() {
			if id := c.Event().ActionID; id != 0 {
				actions = append(actions, id)
			}
			if err := c.NextEvent(); err != nil {
				return nil, err
			}
		}
		for i := len(prior); i < len(actions); i++ {
			if slices.Equal(actions[i-len(prior):i], prior) {
				counts[actions[i]]++
			}
		}
		if err := it.Next(c); err != nil {
			return nil, err
		}
	}

	if w != nil {
		if err := json.NewEncoder(w).Encode(counts); err != nil {
			return nil, fmt.Errorf("%w: write next action counts: %w", ErrIO, err)
		}
	}
	return counts, nil
}
