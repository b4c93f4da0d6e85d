package journal

import "errors"

// ErrNotFound is returned when no journal entry has the requested ID.
var ErrNotFound = errors.New("journal: entry not found")
