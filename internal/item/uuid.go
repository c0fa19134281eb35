package item

import (
	"strings"

	"github.com/google/uuid"
)

func FormatUUID(ownerID, id string) string {
	if ownerID == "" {
		return "Item." + id
	}
	return "Actor." + ownerID + ".Item." + id
}

// ParseUUID splits an item uuid into owner and item id.
// Accepted forms: "Item.<id>" and "Actor.<owner>.Item.<id>".
func ParseUUID(s string) (ownerID, id string, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	switch {
	case len(parts) == 2 && parts[0] == "Item" && parts[1] != "":
		return "", parts[1], true
	case len(parts) == 4 && parts[0] == "Actor" && parts[2] == "Item" && parts[1] != "" && parts[3] != "":
		return parts[1], parts[3], true
	}
	return "", "", false
}

// NewID returns a fresh 16 character document id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
