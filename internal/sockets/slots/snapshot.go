package slots

import (
	"bytes"
	"encoding/json"
	"errors"

	"socketcraft.ai/internal/item"
)

// Snapshot is the frozen document data of a socketed gem, captured at socket
// time with quantity forced to 1 and the document id stripped. It is the only
// source used to recreate the gem when it is unsocketed.
//
// The bytes are private and copied on every boundary, so a Snapshot cannot be
// mutated once taken.
type Snapshot struct {
	raw json.RawMessage
}

func NewSnapshot(gem *item.Item) (Snapshot, error) {
	if gem == nil {
		return Snapshot{}, errors.New("snapshot: nil gem")
	}
	cp := gem.Clone()
	cp.ID = ""
	cp.OwnerID = ""
	cp.SetQuantity(1)
	b, err := json.Marshal(cp)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{raw: b}, nil
}

func (s Snapshot) IsZero() bool { return len(s.raw) == 0 }

// Item decodes a fresh, unowned copy of the gem document.
func (s Snapshot) Item() (*item.Item, error) {
	if s.IsZero() {
		return nil, errors.New("snapshot: empty")
	}
	var it item.Item
	if err := json.Unmarshal(s.raw, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s Snapshot) Equal(o Snapshot) bool { return bytes.Equal(s.raw, o.raw) }

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return []byte("null"), nil
	}
	return append([]byte(nil), s.raw...), nil
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		s.raw = nil
		return nil
	}
	if b[0] != '{' {
		return errors.New("snapshot: expected object")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return err
	}
	s.raw = buf.Bytes()
	return nil
}
