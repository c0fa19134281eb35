// Package effects copies a gem's passive effects onto a host item and removes
// them again. Ownership is tracked by the slot index in each copied effect's
// SocketTag, so removal works after the source gem is gone.
package effects

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"socketcraft.ai/internal/item"
)

// Store is the host item's embedded effect collection.
type Store interface {
	Effects(ctx context.Context, itemUUID string) ([]item.Effect, error)
	CreateEffects(ctx context.Context, itemUUID string, effects []item.Effect) ([]item.Effect, error)
	UpdateEffects(ctx context.Context, itemUUID string, effects []item.Effect) error
	DeleteEffects(ctx context.Context, itemUUID string, ids []string) error
}

type Propagator struct {
	store Store
	log   *zap.Logger
}

func NewPropagator(store Store, logger *zap.Logger) *Propagator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Propagator{store: store, log: logger}
}

// Apply creates a copy of every effect owned by gem on host, tagged with slot.
// Copies get fresh ids, are enabled, transfer to the wearer and originate from host.
func (p *Propagator) Apply(ctx context.Context, host *item.Item, slot int, gem *item.Item) ([]item.Effect, error) {
	if len(gem.Effects) == 0 {
		return nil, nil
	}
	staged := make([]item.Effect, 0, len(gem.Effects))
	for _, src := range gem.Effects {
		e := src.Clone()
		e.ID = item.NewID()
		e.Disabled = false
		e.Transfer = true
		e.Origin = host.UUID()
		e.Socket = &item.SocketTag{SourceGemUUID: gem.UUID(), Slot: slot}
		staged = append(staged, e)
	}
	created, err := p.store.CreateEffects(ctx, host.UUID(), staged)
	if err != nil {
		return nil, fmt.Errorf("create gem effects: %w", err)
	}
	p.log.Debug("applied gem effects",
		zap.String("host", host.UUID()), zap.Int("slot", slot), zap.Int("count", len(created)))
	return created, nil
}

// Remove deletes every effect tagged with slot, whichever gem produced it.
// It returns the number of deleted effects; zero matches is not an error.
func (p *Propagator) Remove(ctx context.Context, hostUUID string, slot int) (int, error) {
	tagged, err := p.Tagged(ctx, hostUUID, slot)
	if err != nil {
		return 0, err
	}
	if len(tagged) == 0 {
		return 0, nil
	}
	ids := make([]string, len(tagged))
	for i, e := range tagged {
		ids[i] = e.ID
	}
	if err := p.store.DeleteEffects(ctx, hostUUID, ids); err != nil {
		return 0, fmt.Errorf("delete gem effects: %w", err)
	}
	p.log.Debug("removed gem effects",
		zap.String("host", hostUUID), zap.Int("slot", slot), zap.Int("count", len(ids)))
	return len(ids), nil
}

// Retag moves effects tagged with slot from to slot to. Used when a slot list
// is spliced and later slots shift down.
func (p *Propagator) Retag(ctx context.Context, hostUUID string, from, to int) (int, error) {
	tagged, err := p.Tagged(ctx, hostUUID, from)
	if err != nil {
		return 0, err
	}
	if len(tagged) == 0 {
		return 0, nil
	}
	for i := range tagged {
		tagged[i].Socket.Slot = to
	}
	if err := p.store.UpdateEffects(ctx, hostUUID, tagged); err != nil {
		return 0, fmt.Errorf("retag gem effects: %w", err)
	}
	return len(tagged), nil
}

// Tagged lists the host effects propagated into slot.
func (p *Propagator) Tagged(ctx context.Context, hostUUID string, slot int) ([]item.Effect, error) {
	all, err := p.store.Effects(ctx, hostUUID)
	if err != nil {
		return nil, err
	}
	var out []item.Effect
	for _, e := range all {
		if e.InSlot(slot) {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}
