// Package activities copies a gem's activities onto a host item. Unlike
// effects, copied activities carry no provenance of their own; the ids created
// for each slot are kept in a per-slot ledger flag and removed by id.
package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"socketcraft.ai/internal/item"
)

// LedgerKey is the flag key holding the per-slot activity records.
const LedgerKey = "socketActivities"

type Store interface {
	Flag(ctx context.Context, itemUUID, ns, key string) (json.RawMessage, error)
	ApplyActivityUpdate(ctx context.Context, itemUUID string, u item.ActivityUpdate) error
}

// SlotRecord is the ledger entry for one slot.
type SlotRecord struct {
	GemUUID      string                  `json:"gemUuid"`
	GemName      string                  `json:"gemName"`
	GemImg       string                  `json:"gemImg"`
	ActivityIDs  []string                `json:"activityIds"`
	ActivityMeta map[string]ActivityMeta `json:"activityMeta"`
}

type ActivityMeta struct {
	SourceID     string `json:"sourceId"`
	Slot         int    `json:"slot"`
	GemImg       string `json:"gemImg"`
	GemName      string `json:"gemName"`
	ActivityName string `json:"activityName"`
}

type Propagator struct {
	store    Store
	ns       string
	supports func(host *item.Item) bool
	log      *zap.Logger
}

// NewPropagator returns a propagator that acts only on hosts for which
// supports reports an activities collection.
func NewPropagator(store Store, namespace string, supports func(host *item.Item) bool, logger *zap.Logger) *Propagator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Propagator{store: store, ns: namespace, supports: supports, log: logger}
}

func (p *Propagator) Supports(host *item.Item) bool {
	return p.supports != nil && p.supports(host)
}

// ApplyFromGem replaces whatever was propagated into slot with copies of the
// gem's activities. Creation and the ledger write are a single update.
func (p *Propagator) ApplyFromGem(ctx context.Context, host *item.Item, slot int, gem *item.Item) (*SlotRecord, error) {
	if !p.Supports(host) {
		return nil, nil
	}
	if _, err := p.RemoveForSlot(ctx, host, slot); err != nil {
		return nil, err
	}

	srcIDs := make([]string, 0, len(gem.Activities))
	for id := range gem.Activities {
		srcIDs = append(srcIDs, id)
	}
	sort.Strings(srcIDs)

	rec := SlotRecord{
		GemUUID:      gem.UUID(),
		GemName:      gem.Name,
		GemImg:       gem.Img,
		ActivityMeta: map[string]ActivityMeta{},
	}
	staged := make([]item.Activity, 0, len(srcIDs))
	for _, srcID := range srcIDs {
		a := gem.Activities[srcID].Clone()
		a.ID = item.NewID()
		staged = append(staged, a)
		rec.ActivityIDs = append(rec.ActivityIDs, a.ID)
		rec.ActivityMeta[a.ID] = ActivityMeta{
			SourceID:     srcID,
			Slot:         slot,
			GemImg:       gem.Img,
			GemName:      gem.Name,
			ActivityName: a.Name,
		}
	}
	if len(staged) == 0 {
		return nil, nil
	}

	ledger, err := p.ledger(ctx, host.UUID())
	if err != nil {
		return nil, err
	}
	if err := ledger.put(slot, rec); err != nil {
		return nil, err
	}
	u, err := p.update(ledger)
	if err != nil {
		return nil, err
	}
	u.Create = staged
	if err := p.store.ApplyActivityUpdate(ctx, host.UUID(), u); err != nil {
		return nil, fmt.Errorf("create gem activities: %w", err)
	}
	p.log.Debug("applied gem activities",
		zap.String("host", host.UUID()), zap.Int("slot", slot), zap.Int("count", len(staged)))
	return &rec, nil
}

// RemoveForSlot deletes the activities recorded for slot and clears its ledger
// entry. Other ledger keys are left alone. It reports the number of deleted
// activities; a slot without a record is a no-op.
func (p *Propagator) RemoveForSlot(ctx context.Context, host *item.Item, slot int) (int, error) {
	if !p.Supports(host) {
		return 0, nil
	}
	ledger, err := p.ledger(ctx, host.UUID())
	if err != nil {
		return 0, err
	}
	rec, ok, err := ledger.get(slot)
	if err != nil || !ok {
		return 0, err
	}
	delete(ledger, slotKey(slot))
	u, err := p.update(ledger)
	if err != nil {
		return 0, err
	}
	u.Delete = rec.ActivityIDs
	if err := p.store.ApplyActivityUpdate(ctx, host.UUID(), u); err != nil {
		return 0, fmt.Errorf("delete gem activities: %w", err)
	}
	return len(rec.ActivityIDs), nil
}

// Shift moves the ledger record of slot from to slot to, rewriting the slot
// recorded in its metadata. Any record already at to is replaced.
func (p *Propagator) Shift(ctx context.Context, host *item.Item, from, to int) error {
	if !p.Supports(host) {
		return nil
	}
	ledger, err := p.ledger(ctx, host.UUID())
	if err != nil {
		return err
	}
	rec, ok, err := ledger.get(from)
	if err != nil || !ok {
		return err
	}
	for id, m := range rec.ActivityMeta {
		m.Slot = to
		rec.ActivityMeta[id] = m
	}
	delete(ledger, slotKey(from))
	if err := ledger.put(to, rec); err != nil {
		return err
	}
	u, err := p.update(ledger)
	if err != nil {
		return err
	}
	return p.store.ApplyActivityUpdate(ctx, host.UUID(), u)
}

// Record returns the ledger entry for slot, if any.
func (p *Propagator) Record(ctx context.Context, host *item.Item, slot int) (*SlotRecord, error) {
	if !p.Supports(host) {
		return nil, nil
	}
	ledger, err := p.ledger(ctx, host.UUID())
	if err != nil {
		return nil, err
	}
	rec, ok, err := ledger.get(slot)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

func (p *Propagator) update(l ledger) (item.ActivityUpdate, error) {
	u := item.ActivityUpdate{FlagNS: p.ns, FlagKey: LedgerKey}
	if len(l) == 0 {
		return u, nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return u, fmt.Errorf("encode activity ledger: %w", err)
	}
	u.Flag = raw
	return u, nil
}

func (p *Propagator) ledger(ctx context.Context, hostUUID string) (ledger, error) {
	raw, err := p.store.Flag(ctx, hostUUID, p.ns, LedgerKey)
	if err != nil {
		return nil, err
	}
	l := ledger{}
	if len(raw) == 0 {
		return l, nil
	}
	if err := json.Unmarshal(raw, &l); err != nil {
		p.log.Warn("ignoring malformed activity ledger", zap.String("host", hostUUID), zap.Error(err))
		return ledger{}, nil
	}
	return l, nil
}

// ledger keeps raw values so keys that are not slot records survive rewrites.
type ledger map[string]json.RawMessage

func (l ledger) get(slot int) (SlotRecord, bool, error) {
	raw, ok := l[slotKey(slot)]
	if !ok || string(raw) == "null" {
		return SlotRecord{}, false, nil
	}
	var rec SlotRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return SlotRecord{}, false, fmt.Errorf("activity ledger slot %d: %w", slot, err)
	}
	return rec, true, nil
}

func (l ledger) put(slot int, rec SlotRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	l[slotKey(slot)] = raw
	return nil
}

func slotKey(slot int) string { return strconv.Itoa(slot) }
