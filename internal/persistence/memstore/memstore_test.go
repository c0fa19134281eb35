package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socketcraft.ai/internal/item"
)

func TestItem_LookupRespectsOwner(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put(&item.Item{ID: "sword", Name: "Sword", OwnerID: "hero"})

	got, err := s.Item(ctx, "Actor.hero.Item.sword")
	require.NoError(t, err)
	assert.Equal(t, "Sword", got.Name)

	for _, uuid := range []string{"Item.sword", "Actor.villain.Item.sword", "junk"} {
		_, err := s.Item(ctx, uuid)
		assert.True(t, errors.Is(err, item.ErrNotFound), uuid)
	}
}

func TestReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put(&item.Item{ID: "sword", Name: "Sword"})

	got, err := s.Item(ctx, "Item.sword")
	require.NoError(t, err)
	got.Name = "Changed"

	again, err := s.Item(ctx, "Item.sword")
	require.NoError(t, err)
	assert.Equal(t, "Sword", again.Name)
}

func TestEffects(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put(&item.Item{ID: "sword"})

	created, err := s.CreateEffects(ctx, "Item.sword", []item.Effect{{Name: "a"}, {ID: "fixed", Name: "b"}})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotEmpty(t, created[0].ID)
	assert.Equal(t, "fixed", created[1].ID)

	_, err = s.CreateEffects(ctx, "Item.sword", []item.Effect{{ID: "fixed"}})
	require.Error(t, err)
	all, _ := s.Effects(ctx, "Item.sword")
	assert.Len(t, all, 2, "failed create must not persist partially")

	created[1].Name = "renamed"
	require.NoError(t, s.UpdateEffects(ctx, "Item.sword", created[1:]))
	err = s.UpdateEffects(ctx, "Item.sword", []item.Effect{{ID: "ghost"}})
	assert.True(t, errors.Is(err, item.ErrNotFound))

	require.NoError(t, s.DeleteEffects(ctx, "Item.sword", []string{created[0].ID, "ghost"}))
	all, err = s.Effects(ctx, "Item.sword")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "renamed", all[0].Name)
}

func TestInventoryOps(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put(&item.Item{ID: "b", OwnerID: "hero", Sort: 2})
	s.Put(&item.Item{ID: "a", OwnerID: "hero", Sort: 2})
	s.Put(&item.Item{ID: "c", OwnerID: "hero", Sort: 1})
	s.Put(&item.Item{ID: "loose"})

	owned, err := s.ItemsOwnedBy(ctx, "hero")
	require.NoError(t, err)
	ids := []string{}
	for _, it := range owned {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	created, err := s.CreateItem(ctx, "hero", &item.Item{Name: "Ruby"})
	require.NoError(t, err)
	assert.Equal(t, "hero", created.OwnerID)
	assert.Len(t, created.ID, 16)

	require.NoError(t, s.SetQuantity(ctx, created.UUID(), 4))
	got, err := s.Item(ctx, created.UUID())
	require.NoError(t, err)
	assert.Equal(t, 4, got.Quantity())

	require.NoError(t, s.DeleteItem(ctx, created.UUID()))
	_, err = s.Item(ctx, created.UUID())
	assert.True(t, errors.Is(err, item.ErrNotFound))
}

func TestFlagsAndActivityUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put(&item.Item{ID: "sword"})

	raw, err := s.Flag(ctx, "Item.sword", "ns", "k")
	require.NoError(t, err)
	assert.Nil(t, raw)

	require.NoError(t, s.ApplyActivityUpdate(ctx, "Item.sword", item.ActivityUpdate{
		Create:  []item.Activity{{ID: "act1", Type: "attack"}},
		FlagNS:  "ns",
		FlagKey: "k",
		Flag:    json.RawMessage(`{"0":{"activityIds":["act1"]}}`),
	}))
	got, _ := s.Item(ctx, "Item.sword")
	assert.Contains(t, got.Activities, "act1")
	raw, err = s.Flag(ctx, "Item.sword", "ns", "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"0":{"activityIds":["act1"]}}`, string(raw))

	require.NoError(t, s.ApplyActivityUpdate(ctx, "Item.sword", item.ActivityUpdate{
		Delete: []string{"act1"}, FlagNS: "ns", FlagKey: "k",
	}))
	got, _ = s.Item(ctx, "Item.sword")
	assert.NotContains(t, got.Activities, "act1")
	raw, _ = s.Flag(ctx, "Item.sword", "ns", "k")
	assert.Nil(t, raw)
}
