package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Socket operations.
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrInvalidIndex     = "E_INVALID_INDEX"
	ErrUnresolvedSource = "E_UNRESOLVED_SOURCE"
	ErrWrongKind        = "E_WRONG_KIND"
	ErrNoPermission     = "E_NO_PERMISSION"
	ErrSlotLimit        = "E_SLOT_LIMIT"
	ErrNotFound         = "E_NOT_FOUND"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrBadRequest:       {},
	ErrInvalidIndex:     {},
	ErrUnresolvedSource: {},
	ErrWrongKind:        {},
	ErrNoPermission:     {},
	ErrSlotLimit:        {},
	ErrNotFound:         {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
