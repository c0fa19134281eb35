// Package inventory consumes gems from an owner's inventory when they are
// socketed and returns them, stacking where possible, when unsocketed.
package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"socketcraft.ai/internal/item"
)

type Store interface {
	ItemsOwnedBy(ctx context.Context, ownerID string) ([]*item.Item, error)
	CreateItem(ctx context.Context, ownerID string, it *item.Item) (*item.Item, error)
	SetQuantity(ctx context.Context, itemUUID string, n int) error
	DeleteItem(ctx context.Context, itemUUID string) error
}

type Reconciler struct {
	store Store
	isGem func(*item.Item) bool
	log   *zap.Logger
}

func NewReconciler(store Store, isGem func(*item.Item) bool, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: store, isGem: isGem, log: logger}
}

// ConsumeOne takes one unit of gem out of its owner's inventory, deleting the
// document when it was the last unit. Unowned gems are left alone. It returns
// the quantity left in the inventory.
func (r *Reconciler) ConsumeOne(ctx context.Context, gem *item.Item) (int, error) {
	if gem.OwnerID == "" {
		return gem.Quantity(), nil
	}
	q := gem.Quantity()
	if q > 1 {
		if err := r.store.SetQuantity(ctx, gem.UUID(), q-1); err != nil {
			return q, fmt.Errorf("decrement gem: %w", err)
		}
		return q - 1, nil
	}
	if err := r.store.DeleteItem(ctx, gem.UUID()); err != nil {
		return q, fmt.Errorf("delete gem: %w", err)
	}
	return 0, nil
}

// ReturnOne puts one unit of the snapshotted gem back into the inventory of
// host's owner. It increments a matching gem stack if one exists and creates
// a new document otherwise. A nil snapshot or an unowned host is a no-op and
// returns nil.
func (r *Reconciler) ReturnOne(ctx context.Context, host *item.Item, snapshot *item.Item) (*item.Item, error) {
	if snapshot == nil || host.OwnerID == "" {
		return nil, nil
	}
	want := snapshot.Clone()
	want.ID = ""
	want.SetQuantity(1)

	owned, err := r.store.ItemsOwnedBy(ctx, host.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	target, err := FindMergeTarget(owned, want, r.isGem)
	if err != nil {
		return nil, err
	}
	if target != nil {
		n := target.Quantity() + 1
		if err := r.store.SetQuantity(ctx, target.UUID(), n); err != nil {
			return nil, fmt.Errorf("increment gem stack: %w", err)
		}
		target.SetQuantity(n)
		r.log.Debug("returned gem to stack",
			zap.String("owner", host.OwnerID), zap.String("item", target.UUID()), zap.Int("quantity", n))
		return target, nil
	}
	created, err := r.store.CreateItem(ctx, host.OwnerID, want)
	if err != nil {
		return nil, fmt.Errorf("create returned gem: %w", err)
	}
	r.log.Debug("returned gem as new item",
		zap.String("owner", host.OwnerID), zap.String("item", created.UUID()))
	return created, nil
}

// FindMergeTarget returns the first candidate that is a gem and the same
// stack as want, or nil.
func FindMergeTarget(candidates []*item.Item, want *item.Item, isGem func(*item.Item) bool) (*item.Item, error) {
	for _, c := range candidates {
		if c == nil || (isGem != nil && !isGem(c)) {
			continue
		}
		same, err := SameStack(c, want)
		if err != nil {
			return nil, err
		}
		if same {
			return c, nil
		}
	}
	return nil, nil
}
