package sockets

import "errors"

var (
	ErrInvalidIndex     = errors.New("invalid slot index")
	ErrUnresolvedSource = errors.New("gem source could not be resolved")
	ErrWrongKind        = errors.New("document is not a gem")
	ErrUnauthorized     = errors.New("not allowed to change sockets")
	ErrSlotLimit        = errors.New("slot limit reached")
)
