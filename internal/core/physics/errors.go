package physics

import "errors"

var (
	ErrActorNotFound      = errors.New("physics actor not found")
	ErrConstraintNotFound = errors.New("constraint not found")
	ErrUnknownProfile     = errors.New("unknown collision profile")
	ErrAlreadyWelded      = errors.New("actor is already welded")
	ErrNotWelded          = errors.New("actor is not welded")
	ErrSelfWeld           = errors.New("actor cannot be welded to itself")
	ErrNoBodies           = errors.New("physics asset has no bodies")
	ErrBodyBoneMissing    = errors.New("physics body bone is not on the mesh")
)
