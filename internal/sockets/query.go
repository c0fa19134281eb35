package sockets

import (
	"context"

	"socketcraft.ai/internal/item"
	"socketcraft.ai/internal/sockets/slots"
)

// IsGem reports whether doc is socketable under the engine's configuration.
func (e *Engine) IsGem(doc *item.Item) bool {
	return doc != nil && e.gems.Matches(doc)
}

// Slots returns a detached copy of the host item's slot list.
func (e *Engine) Slots(ctx context.Context, hostUUID string) ([]slots.Slot, error) {
	return e.slots.Get(ctx, hostUUID)
}

type QueryOptions struct {
	// IncludeSnapshot keeps the gem recreation snapshot on returned slots.
	IncludeSnapshot bool
}

// SlotInfo is a plain view of one slot for listing.
type SlotInfo struct {
	Index    int        `json:"index"`
	Occupied bool       `json:"occupied"`
	Slot     slots.Slot `json:"slot"`
	GemName  string     `json:"gem_name,omitempty"`
	GemImg   string     `json:"gem_img,omitempty"`
	GemUUID  string     `json:"gem_uuid,omitempty"`
}

func (e *Engine) ListSlots(ctx context.Context, hostUUID string, opts QueryOptions) ([]SlotInfo, error) {
	list, err := e.slots.Get(ctx, hostUUID)
	if err != nil {
		return nil, err
	}
	out := make([]SlotInfo, 0, len(list))
	for i, s := range list {
		out = append(out, info(i, s, opts))
	}
	return out, nil
}

// ListGems is ListSlots restricted to occupied slots.
func (e *Engine) ListGems(ctx context.Context, hostUUID string, opts QueryOptions) ([]SlotInfo, error) {
	all, err := e.ListSlots(ctx, hostUUID, opts)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, si := range all {
		if si.Occupied {
			out = append(out, si)
		}
	}
	return out, nil
}

func info(idx int, s slots.Slot, opts QueryOptions) SlotInfo {
	si := SlotInfo{Index: idx, Occupied: s.Occupied(), Slot: s}
	if !opts.IncludeSnapshot {
		si.Slot.GemSnapshot = slots.Snapshot{}
	}
	if s.Gem != nil {
		si.GemName = s.Gem.Name
		si.GemImg = s.Gem.Img
		si.GemUUID = s.Gem.UUID
	}
	return si
}
