package item

import "fmt"

// AddEffects appends copies of effects, assigning ids where missing, and
// returns the stored copies. An id that already exists on it is an error and
// leaves it partly modified; callers apply it to a scratch copy.
func (it *Item) AddEffects(effects []Effect) ([]Effect, error) {
	created := make([]Effect, 0, len(effects))
	for _, e := range effects {
		e = e.Clone()
		if e.ID == "" {
			e.ID = NewID()
		}
		if it.EffectIndex(e.ID) >= 0 {
			return nil, fmt.Errorf("create effect %s: id already exists", e.ID)
		}
		it.Effects = append(it.Effects, e)
		created = append(created, e.Clone())
	}
	return created, nil
}

// ReplaceEffects overwrites existing effects matched by id.
func (it *Item) ReplaceEffects(effects []Effect) error {
	for _, e := range effects {
		i := it.EffectIndex(e.ID)
		if i < 0 {
			return fmt.Errorf("update effect %s: %w", e.ID, ErrNotFound)
		}
		it.Effects[i] = e.Clone()
	}
	return nil
}

// DropEffects removes the effects with the given ids. Unknown ids are ignored.
func (it *Item) DropEffects(ids []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := it.Effects[:0]
	for _, e := range it.Effects {
		if _, ok := drop[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	it.Effects = kept
}
