package persistence

import "errors"

// ErrNotFound is returned when a student with requested id does not exist
var ErrNotFound = errors.New("student not found")
