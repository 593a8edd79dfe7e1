package rig

import "errors"

var ErrNoHandFactory = errors.New("motion controller has no hand factory")
