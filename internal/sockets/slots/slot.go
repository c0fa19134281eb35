// Package slots models the socket slot list persisted on a host item.
package slots

import (
	"encoding/json"
	"fmt"

	"socketcraft.ai/internal/item"
)

// GemRef identifies the gem occupying a slot.
type GemRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Img  string `json:"img"`
}

// Slot is one position in a host item's slot list. A slot is occupied iff Gem
// is non-nil, and only occupied slots carry a GemSnapshot.
//
// Fields the engine does not know about are kept in Extra so that per-slot
// metadata written by other tools survives a rewrite.
type Slot struct {
	Gem          *GemRef
	Name         string
	Img          string
	SourceItemID string
	GemSnapshot  Snapshot
	SlotIndex    *int

	Extra map[string]json.RawMessage
}

func Empty(img, name string) Slot {
	return Slot{Img: img, Name: name}
}

func (s Slot) Occupied() bool { return s.Gem != nil }

// Occupy returns a copy of s holding gem at idx. Unrelated fields of s are kept.
func (s Slot) Occupy(idx int, gem *item.Item, snap Snapshot) Slot {
	out := s.Clone()
	out.Gem = &GemRef{UUID: gem.UUID(), Name: gem.Name, Img: gem.Img}
	out.Name = gem.Name
	out.Img = gem.Img
	out.SourceItemID = gem.ID
	out.GemSnapshot = snap
	i := idx
	out.SlotIndex = &i
	return out
}

// Vacate returns a copy of s reset to the empty placeholder. Unrelated fields are kept.
func (s Slot) Vacate(img, name string) Slot {
	out := s.Clone()
	out.Gem = nil
	out.Img = img
	out.Name = name
	out.SourceItemID = ""
	out.GemSnapshot = Snapshot{}
	out.SlotIndex = nil
	return out
}

func (s Slot) Clone() Slot {
	out := s
	if s.Gem != nil {
		g := *s.Gem
		out.Gem = &g
	}
	if s.SlotIndex != nil {
		i := *s.SlotIndex
		out.SlotIndex = &i
	}
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

var knownKeys = map[string]struct{}{
	"gem": {}, "name": {}, "img": {}, "sourceItemId": {}, "gemSnapshot": {}, "slotIndex": {},
}

func (s Slot) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Extra)+6)
	for k, v := range s.Extra {
		if _, known := knownKeys[k]; !known {
			m[k] = v
		}
	}
	m["gem"] = s.Gem
	m["name"] = s.Name
	m["img"] = s.Img
	if s.Gem != nil {
		m["sourceItemId"] = s.SourceItemID
		if !s.GemSnapshot.IsZero() {
			m["gemSnapshot"] = s.GemSnapshot
		}
		if s.SlotIndex != nil {
			m["slotIndex"] = *s.SlotIndex
		}
	}
	return json.Marshal(m)
}

func (s *Slot) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out Slot
	if raw, ok := m["gem"]; ok && string(raw) != "null" {
		var g GemRef
		if err := json.Unmarshal(raw, &g); err != nil {
			return fmt.Errorf("slot gem: %w", err)
		}
		out.Gem = &g
	}
	if err := decodeField(m, "name", &out.Name); err != nil {
		return err
	}
	if err := decodeField(m, "img", &out.Img); err != nil {
		return err
	}
	if out.Gem != nil {
		if err := decodeField(m, "sourceItemId", &out.SourceItemID); err != nil {
			return err
		}
		if raw, ok := m["gemSnapshot"]; ok {
			if err := out.GemSnapshot.UnmarshalJSON(raw); err != nil {
				return err
			}
		}
		if raw, ok := m["slotIndex"]; ok && string(raw) != "null" {
			var i int
			if err := json.Unmarshal(raw, &i); err != nil {
				return fmt.Errorf("slot slotIndex: %w", err)
			}
			out.SlotIndex = &i
		}
	}
	for k, v := range m {
		if _, known := knownKeys[k]; known {
			continue
		}
		if out.Extra == nil {
			out.Extra = map[string]json.RawMessage{}
		}
		out.Extra[k] = append(json.RawMessage(nil), v...)
	}
	*s = out
	return nil
}

func decodeField(m map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := m[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("slot %s: %w", key, err)
	}
	return nil
}
