package controller

import "errors"

var (
	ErrUnknownState = errors.New("unknown controller state")
	ErrNoRegistry   = errors.New("controller has no state registry")
)
