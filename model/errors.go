package model

import "errors"

// Configuration errors returned at engine construction. Callers match them
// with errors.Is; the wrapped message names the offending field.
var (
	ErrInvalidConstellation = errors.New("invalid constellation")
	ErrInvalidScenario      = errors.New("invalid scenario")
	ErrInvalidTraffic       = errors.New("invalid traffic")
)
