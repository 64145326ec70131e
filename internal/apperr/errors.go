package apperr

import "errors"

var (
	// ErrNotFound signals the requested item does not exist (or is soft-deleted).
	ErrNotFound = errors.New("item not found")

	// ErrBriefingExists is the conflict signal returned when a briefing regeneration
	// would overwrite existing content and force was not set.
	ErrBriefingExists = errors.New("briefing already exists")

	// ErrValidation covers rejected input (empty query, missing target item).
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized signals a missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
)
