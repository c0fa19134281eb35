package slots

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

// FlagKey is the flag key holding the slot list inside the engine namespace.
const FlagKey = "sockets"

// FlagStore is the item-scoped flag storage the slot list lives in.
// Flag returns nil when the flag is unset.
type FlagStore interface {
	Flag(ctx context.Context, itemUUID, ns, key string) (json.RawMessage, error)
	SetFlag(ctx context.Context, itemUUID, ns, key string, raw json.RawMessage) error
}

//go:embed slots.schema.json
var slotsSchemaJSON string

var slotsSchema = jsonschema.MustCompileString("slots.schema.json", slotsSchemaJSON)

// ErrMalformed marks a slot list that does not match the slot list schema.
var ErrMalformed = errors.New("malformed slot list")

// Store reads and writes the whole slot list of a host item. Every write
// replaces the list; there is no indexed persistence and no locking, so a
// caller must read, modify and write back within one logical operation.
type Store struct {
	flags FlagStore
	ns    string
	log   *zap.Logger
}

func NewStore(flags FlagStore, namespace string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{flags: flags, ns: namespace, log: logger}
}

// Get returns a detached copy of the slot list. A missing flag reads as an
// empty list; a flag that is not a valid slot list is an ErrMalformed error
// and is left untouched.
func (s *Store) Get(ctx context.Context, itemUUID string) ([]Slot, error) {
	raw, err := s.flags.Flag(ctx, itemUUID, s.ns, FlagKey)
	if err != nil {
		return nil, err
	}
	out, err := Decode(raw)
	if err != nil {
		s.log.Warn("malformed slot list", zap.String("item", itemUUID), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", itemUUID, err)
	}
	return out, nil
}

// Set replaces the slot list. A list that would not read back is refused
// with ErrMalformed before anything is written.
func (s *Store) Set(ctx context.Context, itemUUID string, list []Slot) error {
	if list == nil {
		list = []Slot{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode slots: %w", err)
	}
	if err := check(raw); err != nil {
		return fmt.Errorf("%s: %w", itemUUID, err)
	}
	return s.flags.SetFlag(ctx, itemUUID, s.ns, FlagKey, raw)
}

// Add appends slot and returns its index.
func (s *Store) Add(ctx context.Context, itemUUID string, slot Slot) (int, error) {
	list, err := s.Get(ctx, itemUUID)
	if err != nil {
		return -1, err
	}
	list = append(list, slot)
	if err := s.Set(ctx, itemUUID, list); err != nil {
		return -1, err
	}
	return len(list) - 1, nil
}

// Remove deletes the slot at idx and renumbers the slot index recorded in
// every later occupied slot. An out-of-range idx is a no-op and reports false.
func (s *Store) Remove(ctx context.Context, itemUUID string, idx int) (bool, error) {
	list, err := s.Get(ctx, itemUUID)
	if err != nil {
		return false, err
	}
	if idx < 0 || idx >= len(list) {
		return false, nil
	}
	list = append(list[:idx], list[idx+1:]...)
	for i := idx; i < len(list); i++ {
		if list[i].SlotIndex != nil {
			n := i
			list[i].SlotIndex = &n
		}
	}
	return true, s.Set(ctx, itemUUID, list)
}

// Decode validates raw against the slot list schema and decodes it.
// Empty input decodes to an empty list.
func Decode(raw json.RawMessage) ([]Slot, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []Slot{}, nil
	}
	if err := check(raw); err != nil {
		return nil, err
	}
	var out []Slot
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if out == nil {
		out = []Slot{}
	}
	return out, nil
}

func check(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := slotsSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
