package sockets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"socketcraft.ai/internal/item"
)

// Resolver looks an item document up by uuid.
type Resolver interface {
	Item(ctx context.Context, uuid string) (*item.Item, error)
}

// Source is what a caller hands to AddGem: a document, a uuid reference or a
// drag payload. Construct one with FromItem, FromUUID or FromDragPayload.
type Source interface {
	resolve(ctx context.Context, r Resolver) (*item.Item, error)
}

type itemSource struct{ it *item.Item }

func FromItem(it *item.Item) Source { return itemSource{it: it} }

func (s itemSource) resolve(context.Context, Resolver) (*item.Item, error) {
	if s.it == nil {
		return nil, fmt.Errorf("nil document: %w", ErrUnresolvedSource)
	}
	return s.it.Clone(), nil
}

type uuidSource string

func FromUUID(uuid string) Source { return uuidSource(uuid) }

func (s uuidSource) resolve(ctx context.Context, r Resolver) (*item.Item, error) {
	uuid := strings.TrimSpace(string(s))
	if uuid == "" {
		return nil, fmt.Errorf("empty uuid: %w", ErrUnresolvedSource)
	}
	it, err := r.Item(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", uuid, err, ErrUnresolvedSource)
	}
	return it, nil
}

// DragPayload is the JSON a UI attaches to a dragged document.
type DragPayload struct {
	Type string     `json:"type"`
	UUID string     `json:"uuid,omitempty"`
	Data *item.Item `json:"data,omitempty"`
}

type dragSource []byte

func FromDragPayload(raw []byte) Source { return dragSource(raw) }

func (s dragSource) resolve(ctx context.Context, r Resolver) (*item.Item, error) {
	var p DragPayload
	if err := json.Unmarshal(s, &p); err != nil {
		return nil, fmt.Errorf("drag payload: %v: %w", err, ErrUnresolvedSource)
	}
	if p.Type != "Item" {
		return nil, fmt.Errorf("drag payload type %q: %w", p.Type, ErrUnresolvedSource)
	}
	if strings.TrimSpace(p.UUID) != "" {
		return uuidSource(p.UUID).resolve(ctx, r)
	}
	if p.Data != nil {
		gem := p.Data
		if gem.ID == "" {
			// An inline document without an id lives in no inventory.
			gem.ID = item.NewID()
			gem.OwnerID = ""
		}
		return gem, nil
	}
	return nil, fmt.Errorf("drag payload without uuid or data: %w", ErrUnresolvedSource)
}
