package repository

import "errors"

// ErrNotFound is returned when a lookup for a single value finds no rows. It
// hides the driver's `sql.ErrNoRows` from callers.
var ErrNotFound = errors.New("repository: not found")
