package world

import "errors"

var (
	ErrStaleHandle     = errors.New("actor handle does not resolve")
	ErrAlreadyAttached = errors.New("actor is already attached")
	ErrNotAttached     = errors.New("actor is not attached")
	ErrAttachCycle     = errors.New("attachment would create a cycle")
	ErrWelded          = errors.New("welded actor cannot be moved independently")
)
