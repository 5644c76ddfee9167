package gamedb

import "errors"

var (
	// ErrFormat reports a malformed file: bad magic, truncated record or undecodable body.
	ErrFormat = errors.New("gamedb: bad format")

	// ErrValidation reports PGN input missing a required field or holding an illegal move.
	ErrValidation = errors.New("gamedb: validation failed")

	// ErrInconsistent reports a stored move the rules engine rejects on replay.
	ErrInconsistent = errors.New("gamedb: inconsistent game")
)
