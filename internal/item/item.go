// Package item holds the document model shared by the socketing engine:
// items, their embedded effects and activities, and item-scoped flags.
package item

import (
	"encoding/json"
	"math"
	"strings"
)

// Item is a stored item document. OwnerID is not part of the document data;
// it names the actor whose inventory holds the item (empty for loose items).
type Item struct {
	ID         string                                `json:"_id,omitempty"`
	Name       string                                `json:"name"`
	Type       string                                `json:"type"`
	Img        string                                `json:"img,omitempty"`
	System     map[string]any                        `json:"system,omitempty"`
	Effects    []Effect                              `json:"effects,omitempty"`
	Activities map[string]Activity                   `json:"activities,omitempty"`
	Flags      map[string]map[string]json.RawMessage `json:"flags,omitempty"`
	Sort       int                                   `json:"sort,omitempty"`
	Folder     string                                `json:"folder,omitempty"`
	Ownership  map[string]int                        `json:"ownership,omitempty"`
	Stats      map[string]any                        `json:"_stats,omitempty"`

	OwnerID string `json:"-"`
}

func (it *Item) UUID() string {
	if it == nil || it.ID == "" {
		return ""
	}
	return FormatUUID(it.OwnerID, it.ID)
}

// Quantity reads system.quantity. Missing or malformed values read as 1.
func (it *Item) Quantity() int {
	if it == nil || it.System == nil {
		return 1
	}
	n, ok := toInt(it.System["quantity"])
	if !ok {
		return 1
	}
	return n
}

func (it *Item) SetQuantity(n int) {
	if it.System == nil {
		it.System = map[string]any{}
	}
	it.System["quantity"] = n
}

// Subtype reads system.type.value, the loot/consumable subtype.
func (it *Item) Subtype() (string, bool) {
	if it == nil || it.System == nil {
		return "", false
	}
	t, ok := it.System["type"].(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := t["value"].(string)
	if !ok {
		return "", false
	}
	return v, true
}

// SourceID returns the source-identity tag of the item: flags.core.sourceId,
// falling back to _stats.compendiumSource.
func (it *Item) SourceID() string {
	if it == nil {
		return ""
	}
	if raw, ok := it.Flag("core", "sourceId"); ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	if it.Stats != nil {
		if s, ok := it.Stats["compendiumSource"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func (it *Item) Flag(ns, key string) (json.RawMessage, bool) {
	if it == nil || it.Flags == nil {
		return nil, false
	}
	m := it.Flags[ns]
	if m == nil {
		return nil, false
	}
	raw, ok := m[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

func (it *Item) SetFlag(ns, key string, raw json.RawMessage) {
	if it.Flags == nil {
		it.Flags = map[string]map[string]json.RawMessage{}
	}
	m := it.Flags[ns]
	if m == nil {
		m = map[string]json.RawMessage{}
		it.Flags[ns] = m
	}
	m[key] = append(json.RawMessage(nil), raw...)
}

func (it *Item) UnsetFlag(ns, key string) {
	if it.Flags == nil || it.Flags[ns] == nil {
		return
	}
	delete(it.Flags[ns], key)
	if len(it.Flags[ns]) == 0 {
		delete(it.Flags, ns)
	}
}

// EffectIndex returns the position of the effect with the given id, or -1.
func (it *Item) EffectIndex(id string) int {
	for i := range it.Effects {
		if it.Effects[i].ID == id {
			return i
		}
	}
	return -1
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
