package slots

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socketcraft.ai/internal/item"
)

type flagMap map[string]json.RawMessage

func (f flagMap) Flag(_ context.Context, itemUUID, ns, key string) (json.RawMessage, error) {
	if itemUUID == "broken" {
		return nil, errors.New("boom")
	}
	return f[itemUUID+"|"+ns+"|"+key], nil
}

func (f flagMap) SetFlag(_ context.Context, itemUUID, ns, key string, raw json.RawMessage) error {
	f[itemUUID+"|"+ns+"|"+key] = append(json.RawMessage(nil), raw...)
	return nil
}

func ruby() *item.Item {
	it := &item.Item{ID: "ruby1", OwnerID: "hero", Name: "Ruby", Img: "ruby.png", Type: "loot",
		System: map[string]any{"quantity": 3, "type": map[string]any{"value": "gem"}}}
	return it
}

func TestStore_GetMissingIsEmpty(t *testing.T) {
	s := NewStore(flagMap{}, "ns", nil)
	got, err := s.Get(context.Background(), "Item.h")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_AddRemove(t *testing.T) {
	ctx := context.Background()
	s := NewStore(flagMap{}, "ns", nil)

	for i := 0; i < 3; i++ {
		idx, err := s.Add(ctx, "Item.h", Empty("hole.svg", "Empty"))
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}

	ok, err := s.Remove(ctx, "Item.h", 5)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.Remove(ctx, "Item.h", -1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Remove(ctx, "Item.h", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(ctx, "Item.h")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_GetIsDetached(t *testing.T) {
	ctx := context.Background()
	s := NewStore(flagMap{}, "ns", nil)
	snap, err := NewSnapshot(ruby())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "Item.h", []Slot{Empty("hole.svg", "Empty").Occupy(0, ruby(), snap)}))

	a, err := s.Get(ctx, "Item.h")
	require.NoError(t, err)
	a[0].Gem.Name = "Fake"
	a[0].Name = "Fake"

	b, err := s.Get(ctx, "Item.h")
	require.NoError(t, err)
	assert.Equal(t, "Ruby", b[0].Gem.Name)
	assert.Equal(t, "Ruby", b[0].Name)
}

func TestStore_MalformedFlagIsAnError(t *testing.T) {
	ctx := context.Background()
	flags := flagMap{}
	s := NewStore(flags, "ns", nil)

	for _, raw := range []string{`{"not":"a list"}`, `[{"gem":{"name":"no uuid"}}]`, `[1,2]`, `[{"slotIndex":-1}]`, `[{`} {
		key := "Item.h|ns|" + FlagKey
		flags[key] = json.RawMessage(raw)
		_, err := s.Get(ctx, "Item.h")
		require.ErrorIs(t, err, ErrMalformed, raw)

		_, err = s.Add(ctx, "Item.h", Empty("hole.svg", "Empty"))
		require.ErrorIs(t, err, ErrMalformed, raw)
		assert.Equal(t, raw, string(flags[key]), "flag must be left as found")
	}
}

func TestStore_SetRefusesUnreadableList(t *testing.T) {
	ctx := context.Background()
	flags := flagMap{}
	s := NewStore(flags, "ns", nil)
	require.NoError(t, s.Set(ctx, "Item.h", []Slot{Empty("hole.svg", "Empty")}))

	bad := []Slot{Empty("hole.svg", "Empty"), {Gem: &GemRef{Name: "Opal"}}}
	err := s.Set(ctx, "Item.h", bad)
	require.ErrorIs(t, err, ErrMalformed)

	got, err := s.Get(ctx, "Item.h")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_OccupiedSlotRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := NewStore(flagMap{}, "ns", nil)
	gem := ruby()
	gem.Img = ""
	gem.OwnerID = ""
	snap, err := NewSnapshot(gem)
	require.NoError(t, err)

	list := []Slot{Empty("", ""), Empty("hole.svg", "Empty").Occupy(1, gem, snap)}
	require.NoError(t, s.Set(ctx, "Item.h", list))
	got, err := s.Get(ctx, "Item.h")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Item.ruby1", got[1].Gem.UUID)
	assert.Equal(t, 1, *got[1].SlotIndex)
}

func TestStore_FlagErrorPropagates(t *testing.T) {
	s := NewStore(flagMap{}, "ns", nil)
	_, err := s.Get(context.Background(), "broken")
	require.Error(t, err)
}

func TestDecode_PreservesExtra(t *testing.T) {
	raw := json.RawMessage(`[{"gem":null,"img":"hole.svg","name":"Empty","color":"red"}]`)
	got, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Occupied())
	assert.JSONEq(t, `"red"`, string(got[0].Extra["color"]))

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
}

func TestStore_RemoveRenumbersLaterSlots(t *testing.T) {
	ctx := context.Background()
	s := NewStore(flagMap{}, "ns", nil)
	snap, err := NewSnapshot(ruby())
	require.NoError(t, err)
	empty := Empty("hole.svg", "Empty")
	require.NoError(t, s.Set(ctx, "Item.h", []Slot{
		empty.Occupy(0, ruby(), snap),
		empty,
		empty.Occupy(2, ruby(), snap),
	}))

	ok, err := s.Remove(ctx, "Item.h", 0)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.Get(ctx, "Item.h")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.False(t, got[0].Occupied())
	require.NotNil(t, got[1].SlotIndex)
	assert.Equal(t, 1, *got[1].SlotIndex)
}
