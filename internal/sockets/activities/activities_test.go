package activities

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socketcraft.ai/internal/item"
	"socketcraft.ai/internal/persistence/memstore"
)

const ns = "socketcraft"

func weaponsOnly(host *item.Item) bool { return host.Type == "weapon" }

func setup(t *testing.T) (*memstore.Store, *Propagator, *item.Item, *item.Item) {
	t.Helper()
	s := memstore.New()
	host := s.Put(&item.Item{ID: "sword", OwnerID: "hero", Type: "weapon",
		Activities: map[string]item.Activity{"native": {ID: "native", Type: "attack"}}})
	gem := s.Put(&item.Item{ID: "ruby", OwnerID: "hero", Name: "Ruby", Img: "ruby.png", Type: "loot",
		Activities: map[string]item.Activity{
			"b": {ID: "b", Type: "damage", Name: "Burn"},
			"a": {ID: "a", Type: "utility", Name: "Glow", Data: map[string]any{"range": 30}},
		}})
	return s, NewPropagator(s, ns, weaponsOnly, nil), host, gem
}

func hostActivities(t *testing.T, s *memstore.Store) map[string]item.Activity {
	t.Helper()
	h, err := s.Item(context.Background(), "Actor.hero.Item.sword")
	require.NoError(t, err)
	return h.Activities
}

func TestApplyFromGem_CreatesAndRecords(t *testing.T) {
	ctx := context.Background()
	s, p, host, gem := setup(t)

	rec, err := p.ApplyFromGem(ctx, host, 0, gem)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Actor.hero.Item.ruby", rec.GemUUID)
	require.Len(t, rec.ActivityIDs, 2)

	acts := hostActivities(t, s)
	assert.Len(t, acts, 3)
	for _, id := range rec.ActivityIDs {
		a, ok := acts[id]
		require.True(t, ok)
		assert.Equal(t, id, a.ID)
		meta := rec.ActivityMeta[id]
		assert.Equal(t, 0, meta.Slot)
		assert.Equal(t, "Ruby", meta.GemName)
		assert.Equal(t, a.Name, meta.ActivityName)
	}
	assert.Equal(t, "a", rec.ActivityMeta[rec.ActivityIDs[0]].SourceID)

	got, err := p.Record(ctx, host, 0)
	require.NoError(t, err)
	assert.Equal(t, rec.ActivityIDs, got.ActivityIDs)
}

func TestApplyFromGem_ReplacesPreviousGeneration(t *testing.T) {
	ctx := context.Background()
	s, p, host, gem := setup(t)

	first, err := p.ApplyFromGem(ctx, host, 0, gem)
	require.NoError(t, err)
	second, err := p.ApplyFromGem(ctx, host, 0, gem)
	require.NoError(t, err)

	acts := hostActivities(t, s)
	assert.Len(t, acts, 3)
	for _, id := range first.ActivityIDs {
		assert.NotContains(t, acts, id)
	}
	for _, id := range second.ActivityIDs {
		assert.Contains(t, acts, id)
	}
}

func TestApplyFromGem_GemWithoutActivitiesClearsSlot(t *testing.T) {
	ctx := context.Background()
	s, p, host, gem := setup(t)

	_, err := p.ApplyFromGem(ctx, host, 0, gem)
	require.NoError(t, err)
	rec, err := p.ApplyFromGem(ctx, host, 0, &item.Item{ID: "plain", Type: "loot"})
	require.NoError(t, err)
	assert.Nil(t, rec)

	assert.Len(t, hostActivities(t, s), 1)
	raw, err := s.Flag(ctx, host.UUID(), ns, LedgerKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestRemoveForSlot_PreservesSiblingsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, p, host, gem := setup(t)

	_, err := p.ApplyFromGem(ctx, host, 0, gem)
	require.NoError(t, err)
	keep, err := p.ApplyFromGem(ctx, host, 1, gem)
	require.NoError(t, err)

	raw, _ := s.Flag(ctx, host.UUID(), ns, LedgerKey)
	var l map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &l))
	l["hidden"] = json.RawMessage(`["native"]`)
	raw, _ = json.Marshal(l)
	require.NoError(t, s.SetFlag(ctx, host.UUID(), ns, LedgerKey, raw))

	n, err := p.RemoveForSlot(ctx, host, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = p.RemoveForSlot(ctx, host, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	acts := hostActivities(t, s)
	assert.Len(t, acts, 3)
	for _, id := range keep.ActivityIDs {
		assert.Contains(t, acts, id)
	}

	raw, _ = s.Flag(ctx, host.UUID(), ns, LedgerKey)
	l = nil
	require.NoError(t, json.Unmarshal(raw, &l))
	assert.Contains(t, l, "hidden")
	assert.Contains(t, l, "1")
	assert.NotContains(t, l, "0")
}

func TestShift(t *testing.T) {
	ctx := context.Background()
	_, p, host, gem := setup(t)

	rec, err := p.ApplyFromGem(ctx, host, 2, gem)
	require.NoError(t, err)
	require.NoError(t, p.Shift(ctx, host, 2, 1))

	old, err := p.Record(ctx, host, 2)
	require.NoError(t, err)
	assert.Nil(t, old)
	moved, err := p.Record(ctx, host, 1)
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, rec.ActivityIDs, moved.ActivityIDs)
	for _, m := range moved.ActivityMeta {
		assert.Equal(t, 1, m.Slot)
	}

	require.NoError(t, p.Shift(ctx, host, 7, 6), "missing record is a no-op")
}

func TestUnsupportedHostIsNoop(t *testing.T) {
	ctx := context.Background()
	s, p, _, gem := setup(t)
	armor := s.Put(&item.Item{ID: "plate", OwnerID: "hero", Type: "equipment"})

	rec, err := p.ApplyFromGem(ctx, armor, 0, gem)
	require.NoError(t, err)
	assert.Nil(t, rec)
	got, _ := s.Item(ctx, armor.UUID())
	assert.Empty(t, got.Activities)

	n, err := p.RemoveForSlot(ctx, armor, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}
