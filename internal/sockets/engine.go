// Package sockets is the socket engine: it sequences the slot store, the
// effect and activity propagators and the inventory reconciler into the
// add/remove gem and add/remove slot operations callers invoke.
//
// The engine holds no per-item state and takes no locks. Two operations on
// the same host item that run concurrently can lose one of the slot list
// writes; callers serialize operations per host item.
package sockets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"socketcraft.ai/internal/config"
	"socketcraft.ai/internal/gems"
	"socketcraft.ai/internal/inventory"
	"socketcraft.ai/internal/item"
	"socketcraft.ai/internal/sockets/activities"
	"socketcraft.ai/internal/sockets/effects"
	"socketcraft.ai/internal/sockets/slots"
)

// Documents is the document layer the engine reads and writes through.
type Documents interface {
	Resolver
	slots.FlagStore
	effects.Store
	activities.Store
	inventory.Store
}

type Engine struct {
	docs    Documents
	cfg     config.Config
	minRole Role

	gems       *gems.Classifier
	slots      *slots.Store
	effects    *effects.Propagator
	activities *activities.Propagator
	inventory  *inventory.Reconciler

	auth   Authorizer
	events EventSink
	notify Notifier
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option       { return func(e *Engine) { e.log = l } }
func WithAuthorizer(a Authorizer) Option    { return func(e *Engine) { e.auth = a } }
func WithEventSink(s EventSink) Option      { return func(e *Engine) { e.events = s } }
func WithNotifier(n Notifier) Option        { return func(e *Engine) { e.notify = n } }
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func New(docs Documents, cfg config.Config, opts ...Option) (*Engine, error) {
	minRole, err := ParseRole(cfg.MinSlotRole)
	if err != nil {
		return nil, fmt.Errorf("min_slot_role: %w", err)
	}
	e := &Engine{
		docs:    docs,
		cfg:     cfg,
		minRole: minRole,
		gems:    gems.NewClassifier(gems.FromConfig(cfg)),
		auth:    RoleAuthorizer{},
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.notify == nil {
		e.notify = logNotifier{log: e.log}
	}
	supports := func(host *item.Item) bool { return cfg.SupportsActivities(host.Type) }
	e.slots = slots.NewStore(docs, cfg.Namespace, e.log)
	e.effects = effects.NewPropagator(docs, e.log)
	e.activities = activities.NewPropagator(docs, cfg.Namespace, supports, e.log)
	e.inventory = inventory.NewReconciler(docs, e.gems.Matches, e.log)
	return e, nil
}

// AddGem sockets the gem resolved from src into slot idx of the host item.
// Any previous occupant's effects and activities are replaced; one unit of
// the gem is consumed from its owner's inventory last, so a failure earlier
// in the sequence leaves the gem stack intact.
func (e *Engine) AddGem(ctx context.Context, hostUUID string, idx int, src Source) (slots.Slot, error) {
	slot, err := e.addGem(ctx, hostUUID, idx, src)
	e.observe("add_gem", err)
	return slot, err
}

func (e *Engine) addGem(ctx context.Context, hostUUID string, idx int, src Source) (slots.Slot, error) {
	host, err := e.docs.Item(ctx, hostUUID)
	if err != nil {
		return slots.Slot{}, err
	}
	list, err := e.slots.Get(ctx, hostUUID)
	if err != nil {
		return slots.Slot{}, err
	}
	if idx < 0 || idx >= len(list) {
		return slots.Slot{}, e.reject(ctx, fmt.Errorf("slot %d of %d: %w", idx, len(list), ErrInvalidIndex))
	}
	if src == nil {
		return slots.Slot{}, e.reject(ctx, fmt.Errorf("no source: %w", ErrUnresolvedSource))
	}
	gem, err := src.resolve(ctx, e.docs)
	if err != nil {
		return slots.Slot{}, e.reject(ctx, err)
	}
	if gem.UUID() == "" {
		return slots.Slot{}, e.reject(ctx, fmt.Errorf("%q has no id: %w", gem.Name, ErrUnresolvedSource))
	}
	if !e.gems.Matches(gem) {
		return slots.Slot{}, e.reject(ctx, fmt.Errorf("%s: %w", gem.Name, ErrWrongKind))
	}

	if _, err := e.effects.Remove(ctx, hostUUID, idx); err != nil {
		return slots.Slot{}, err
	}
	snap, err := slots.NewSnapshot(gem)
	if err != nil {
		return slots.Slot{}, err
	}
	list[idx] = list[idx].Occupy(idx, gem, snap)
	if err := e.slots.Set(ctx, hostUUID, list); err != nil {
		return slots.Slot{}, fmt.Errorf("write slot %d: %w", idx, err)
	}
	if _, err := e.effects.Apply(ctx, host, idx, gem); err != nil {
		return slots.Slot{}, err
	}
	if _, err := e.activities.ApplyFromGem(ctx, host, idx, gem); err != nil {
		return slots.Slot{}, err
	}
	if _, err := e.inventory.ConsumeOne(ctx, gem); err != nil {
		return slots.Slot{}, err
	}

	e.log.Info("gem socketed",
		zap.String("host", hostUUID), zap.Int("slot", idx), zap.String("gem", gem.UUID()))
	e.emit(Event{Kind: EventGemAdded, HostUUID: hostUUID, Slot: idx, GemUUID: gem.UUID(), GemName: gem.Name})
	return list[idx].Clone(), nil
}

// RemoveGem unsockets slot idx. The gem is returned to the host owner's
// inventory on a best-effort basis; propagated effects and activities are
// removed and the slot is emptied whether or not the return succeeded.
// Removing from an empty slot is a no-op. An idx outside the slot list is
// rejected with ErrInvalidIndex and changes nothing. It returns the inventory
// document that received the gem, if any.
func (e *Engine) RemoveGem(ctx context.Context, hostUUID string, idx int) (*item.Item, error) {
	returned, err := e.removeGem(ctx, hostUUID, idx)
	e.observe("remove_gem", err)
	return returned, err
}

func (e *Engine) removeGem(ctx context.Context, hostUUID string, idx int) (*item.Item, error) {
	host, err := e.docs.Item(ctx, hostUUID)
	if err != nil {
		return nil, err
	}
	list, err := e.slots.Get(ctx, hostUUID)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(list) {
		return nil, e.reject(ctx, fmt.Errorf("slot %d of %d: %w", idx, len(list), ErrInvalidIndex))
	}
	slot := list[idx]
	if !slot.Occupied() {
		return nil, nil
	}

	ret := e.returnGem(ctx, host, slot)

	_, effErr := e.effects.Remove(ctx, hostUUID, idx)
	_, actErr := e.activities.RemoveForSlot(ctx, host, idx)
	if err := errors.Join(effErr, actErr); err != nil {
		return ret.item, fmt.Errorf("clear slot %d: %w", idx, err)
	}

	list[idx] = slot.Vacate(e.cfg.EmptySlotImg, e.cfg.EmptySlotName)
	if err := e.slots.Set(ctx, hostUUID, list); err != nil {
		return ret.item, fmt.Errorf("write slot %d: %w", idx, err)
	}

	e.log.Info("gem unsocketed",
		zap.String("host", hostUUID), zap.Int("slot", idx), zap.String("gem", slot.Gem.UUID))
	e.emit(Event{Kind: EventGemRemoved, HostUUID: hostUUID, Slot: idx, GemUUID: slot.Gem.UUID, GemName: slot.Gem.Name})
	return ret.item, nil
}

// returnOutcome is the result of the best-effort inventory return. A failed
// return is logged and recorded here; it never stops the slot cleanup.
type returnOutcome struct {
	item *item.Item
	err  error
}

func (e *Engine) returnGem(ctx context.Context, host *item.Item, slot slots.Slot) returnOutcome {
	var out returnOutcome
	if slot.GemSnapshot.IsZero() {
		return out
	}
	snap, err := slot.GemSnapshot.Item()
	if err == nil {
		out.item, err = e.inventory.ReturnOne(ctx, host, snap)
	}
	if err != nil {
		out.err = err
		returnFailures.Inc()
		e.log.Warn("could not return gem to inventory",
			zap.String("host", host.UUID()), zap.String("gem", slot.Gem.UUID), zap.Error(err))
		e.emit(Event{Kind: EventReturnFailed, HostUUID: host.UUID(), Slot: derefIndex(slot.SlotIndex),
			GemUUID: slot.Gem.UUID, GemName: slot.Gem.Name, Error: err.Error()})
	}
	return out
}

// AddSlot appends an empty slot and returns its index.
func (e *Engine) AddSlot(ctx context.Context, user User, hostUUID string) (int, error) {
	idx, err := e.addSlot(ctx, user, hostUUID)
	e.observe("add_slot", err)
	return idx, err
}

func (e *Engine) addSlot(ctx context.Context, user User, hostUUID string) (int, error) {
	if !e.auth.Allowed(ctx, user, e.minRole) {
		return -1, e.reject(ctx, fmt.Errorf("%s needs %s: %w", user.Role, e.minRole, ErrUnauthorized))
	}
	if e.cfg.MaxSlots > 0 {
		list, err := e.slots.Get(ctx, hostUUID)
		if err != nil {
			return -1, err
		}
		if len(list) >= e.cfg.MaxSlots {
			return -1, e.reject(ctx, fmt.Errorf("%d slots: %w", len(list), ErrSlotLimit))
		}
	}
	idx, err := e.slots.Add(ctx, hostUUID, slots.Empty(e.cfg.EmptySlotImg, e.cfg.EmptySlotName))
	if err != nil {
		return -1, err
	}
	e.emit(Event{Kind: EventSlotAdded, HostUUID: hostUUID, Slot: idx, UserID: user.ID})
	return idx, nil
}

// RemoveSlot deletes slot idx. An occupied slot is unsocketed first, and the
// effects and activities of every later slot are moved down one index so
// they stay attached to the slot that produced them.
func (e *Engine) RemoveSlot(ctx context.Context, user User, hostUUID string, idx int) error {
	err := e.removeSlot(ctx, user, hostUUID, idx)
	e.observe("remove_slot", err)
	return err
}

func (e *Engine) removeSlot(ctx context.Context, user User, hostUUID string, idx int) error {
	if !e.auth.Allowed(ctx, user, e.minRole) {
		return e.reject(ctx, fmt.Errorf("%s needs %s: %w", user.Role, e.minRole, ErrUnauthorized))
	}
	host, err := e.docs.Item(ctx, hostUUID)
	if err != nil {
		return err
	}
	list, err := e.slots.Get(ctx, hostUUID)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(list) {
		return e.reject(ctx, fmt.Errorf("slot %d of %d: %w", idx, len(list), ErrInvalidIndex))
	}
	if list[idx].Occupied() {
		if _, err := e.removeGem(ctx, hostUUID, idx); err != nil {
			return err
		}
	}
	for j := idx + 1; j < len(list); j++ {
		if _, err := e.effects.Retag(ctx, hostUUID, j, j-1); err != nil {
			return err
		}
		if err := e.activities.Shift(ctx, host, j, j-1); err != nil {
			return err
		}
	}
	if _, err := e.slots.Remove(ctx, hostUUID, idx); err != nil {
		return err
	}
	e.emit(Event{Kind: EventSlotRemoved, HostUUID: hostUUID, Slot: idx, UserID: user.ID})
	return nil
}

// reject reports a validation failure to the user and returns err unchanged.
func (e *Engine) reject(ctx context.Context, err error) error {
	e.notify.Warn(ctx, err.Error())
	return err
}

func (e *Engine) emit(ev Event) {
	if e.events == nil {
		return
	}
	ev.Time = e.now().UTC()
	if err := e.events.WriteEvent(ev); err != nil {
		e.log.Warn("socket event not recorded", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}

func (e *Engine) observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case isRejection(err):
		result = "rejected"
	default:
		result = "error"
	}
	socketOps.WithLabelValues(op, result).Inc()
}

func isRejection(err error) bool {
	for _, target := range []error{ErrInvalidIndex, ErrUnresolvedSource, ErrWrongKind, ErrUnauthorized, ErrSlotLimit} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func derefIndex(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}
