package repository

import "errors"

// ErrNoRowsAffected signals a write that matched nothing, typically a
// stale id or an already soft-deleted row.
var ErrNoRowsAffected = errors.New("no rows affected")
