package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"socketcraft.ai/internal/item"
	"socketcraft.ai/internal/sockets"
)

type itemLister interface {
	ItemsOwnedBy(ctx context.Context, ownerID string) ([]*item.Item, error)
}

type slotLister interface {
	ListSlots(ctx context.Context, hostUUID string, opts sockets.QueryOptions) ([]sockets.SlotInfo, error)
}

// adminHandlers serve read-only views for operators.
type adminHandlers struct {
	store  itemLister
	engine slotLister
}

// GET /admin/v1/items?owner=<actor id>
func (h *adminHandlers) items(rw http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		http.Error(rw, "missing owner", http.StatusBadRequest)
		return
	}
	list, err := h.store.ItemsOwnedBy(r.Context(), owner)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	type row struct {
		UUID     string `json:"uuid"`
		Name     string `json:"name"`
		Type     string `json:"type"`
		Quantity int    `json:"quantity"`
	}
	out := make([]row, 0, len(list))
	for _, it := range list {
		out = append(out, row{UUID: it.UUID(), Name: it.Name, Type: it.Type, Quantity: it.Quantity()})
	}
	writeJSON(rw, http.StatusOK, out)
}

// GET /admin/v1/slots?item=<item uuid>[&snapshot=1]
func (h *adminHandlers) slots(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uuid := strings.TrimSpace(q.Get("item"))
	if uuid == "" {
		http.Error(rw, "missing item", http.StatusBadRequest)
		return
	}
	list, err := h.engine.ListSlots(r.Context(), uuid, sockets.QueryOptions{IncludeSnapshot: q.Get("snapshot") == "1"})
	switch {
	case errors.Is(err, item.ErrNotFound):
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(rw, http.StatusOK, list)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func loopbackOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
