package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	UserID          string `json:"user_id"`
	Role            string `json:"role,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	UserID          string `json:"user_id"`
	Role            string `json:"role"`
	Namespace       string `json:"namespace"`
}

// Operation names carried by OP.
const (
	OpAddGem     = "ADD_GEM"
	OpRemoveGem  = "REMOVE_GEM"
	OpAddSlot    = "ADD_SLOT"
	OpRemoveSlot = "REMOVE_SLOT"
	OpListSlots  = "LIST_SLOTS"
)

// OP (client -> server). Source is required for ADD_GEM: either a uuid string
// or a drag payload object.
type OpMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	Op              string          `json:"op"`
	ItemUUID        string          `json:"item_uuid"`
	Index           *int            `json:"index,omitempty"`
	Source          json.RawMessage `json:"source,omitempty"`
	IncludeSnapshot bool            `json:"include_snapshot,omitempty"`
}

// RESULT (server -> client), one per OP.
type ResultMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	OK              bool            `json:"ok"`
	Code            string          `json:"code,omitempty"`
	Message         string          `json:"message,omitempty"`
	Index           *int            `json:"index,omitempty"`
	Slots           json.RawMessage `json:"slots,omitempty"`
	Returned        string          `json:"returned,omitempty"`
}
