package domain

import "errors"

// ErrNoTargetData aborts a run: the target date itself has no model
// observations, so nothing can be scored.
var ErrNoTargetData = errors.New("no model data for target date")

// ErrMissingData marks a soft gap in a historical slice. Callers degrade to
// the documented fallbacks instead of failing.
var ErrMissingData = errors.New("missing data")

// ErrNotFound is returned by stores when a requested row does not exist.
var ErrNotFound = errors.New("not found")
