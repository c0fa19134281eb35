// Package memstore is an in-memory item document store. Every read returns a
// copy and every write stores a copy, so callers never share state with it.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"socketcraft.ai/internal/item"
)

type Store struct {
	mu    sync.RWMutex
	items map[string]*item.Item // by document id
}

func New() *Store {
	return &Store{items: map[string]*item.Item{}}
}

// Put inserts or replaces a document as-is. An empty id is assigned.
func (s *Store) Put(it *item.Item) *item.Item {
	cp := it.Clone()
	if cp.ID == "" {
		cp.ID = item.NewID()
	}
	s.mu.Lock()
	s.items[cp.ID] = cp
	s.mu.Unlock()
	return cp.Clone()
}

func (s *Store) Item(_ context.Context, uuid string) (*item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, err := s.lookupLocked(uuid)
	if err != nil {
		return nil, err
	}
	return it.Clone(), nil
}

func (s *Store) ItemsOwnedBy(_ context.Context, ownerID string) ([]*item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*item.Item
	for _, it := range s.items {
		if ownerID != "" && it.OwnerID == ownerID {
			out = append(out, it.Clone())
		}
	}
	sortItems(out)
	return out, nil
}

// All returns every stored document ordered by sort then id.
func (s *Store) All() []*item.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*item.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it.Clone())
	}
	sortItems(out)
	return out
}

func (s *Store) CreateItem(_ context.Context, ownerID string, it *item.Item) (*item.Item, error) {
	cp := it.Clone()
	cp.OwnerID = ownerID
	s.mu.Lock()
	defer s.mu.Unlock()
	if cp.ID == "" {
		cp.ID = item.NewID()
	}
	if _, exists := s.items[cp.ID]; exists {
		return nil, fmt.Errorf("create item %s: id already exists", cp.ID)
	}
	s.items[cp.ID] = cp
	return cp.Clone(), nil
}

func (s *Store) SetQuantity(_ context.Context, uuid string, n int) error {
	return s.update(uuid, func(it *item.Item) error {
		it.SetQuantity(n)
		return nil
	})
}

func (s *Store) DeleteItem(_ context.Context, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.lookupLocked(uuid)
	if err != nil {
		return err
	}
	delete(s.items, it.ID)
	return nil
}

func (s *Store) Flag(_ context.Context, uuid, ns, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, err := s.lookupLocked(uuid)
	if err != nil {
		return nil, err
	}
	raw, ok := it.Flag(ns, key)
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), raw...), nil
}

func (s *Store) SetFlag(_ context.Context, uuid, ns, key string, raw json.RawMessage) error {
	return s.update(uuid, func(it *item.Item) error {
		it.SetFlag(ns, key, raw)
		return nil
	})
}

func (s *Store) Effects(_ context.Context, uuid string) ([]item.Effect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, err := s.lookupLocked(uuid)
	if err != nil {
		return nil, err
	}
	out := make([]item.Effect, len(it.Effects))
	for i, e := range it.Effects {
		out[i] = e.Clone()
	}
	return out, nil
}

func (s *Store) CreateEffects(_ context.Context, uuid string, effects []item.Effect) ([]item.Effect, error) {
	var created []item.Effect
	err := s.update(uuid, func(it *item.Item) error {
		var err error
		created, err = it.AddEffects(effects)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateEffects(_ context.Context, uuid string, effects []item.Effect) error {
	return s.update(uuid, func(it *item.Item) error {
		return it.ReplaceEffects(effects)
	})
}

func (s *Store) DeleteEffects(_ context.Context, uuid string, ids []string) error {
	return s.update(uuid, func(it *item.Item) error {
		it.DropEffects(ids)
		return nil
	})
}

func (s *Store) ApplyActivityUpdate(_ context.Context, uuid string, u item.ActivityUpdate) error {
	return s.update(uuid, func(it *item.Item) error {
		u.Apply(it)
		return nil
	})
}

// update runs fn against a private copy and stores it only if fn succeeds.
func (s *Store) update(uuid string, fn func(*item.Item) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.lookupLocked(uuid)
	if err != nil {
		return err
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.items[next.ID] = next
	return nil
}

func (s *Store) lookupLocked(uuid string) (*item.Item, error) {
	ownerID, id, ok := item.ParseUUID(uuid)
	if !ok {
		return nil, fmt.Errorf("%q: %w", uuid, item.ErrNotFound)
	}
	it := s.items[id]
	if it == nil || it.OwnerID != ownerID {
		return nil, fmt.Errorf("%q: %w", uuid, item.ErrNotFound)
	}
	return it, nil
}

func sortItems(items []*item.Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Sort != items[j].Sort {
			return items[i].Sort < items[j].Sort
		}
		return items[i].ID < items[j].ID
	})
}
