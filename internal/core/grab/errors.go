package grab

import "errors"

var (
	ErrNotGrabbable = errors.New("actor does not implement the grab capability")
	ErrNoHandBody   = errors.New("negotiator has no hand body")
)
