package item

// Effect is a passive effect embedded in an item.
type Effect struct {
	ID       string         `json:"_id,omitempty"`
	Name     string         `json:"name"`
	Img      string         `json:"img,omitempty"`
	Disabled bool           `json:"disabled"`
	Transfer bool           `json:"transfer"`
	Origin   string         `json:"origin,omitempty"`
	Changes  []EffectChange `json:"changes,omitempty"`
	Duration map[string]any `json:"duration,omitempty"`

	// Socket is set only on effects copied from a socketed gem.
	Socket *SocketTag `json:"socket,omitempty"`
}

type EffectChange struct {
	Key      string `json:"key"`
	Mode     int    `json:"mode"`
	Value    string `json:"value"`
	Priority int    `json:"priority,omitempty"`
}

// SocketTag records which gem and which slot index produced a transferred effect.
type SocketTag struct {
	SourceGemUUID string `json:"sourceGemUuid"`
	Slot          int    `json:"slot"`
}

// InSlot reports whether the effect was propagated into slot idx.
func (e Effect) InSlot(idx int) bool {
	return e.Socket != nil && e.Socket.Slot == idx
}
