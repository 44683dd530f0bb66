package datalog

import "errors"

// ErrNoSession indicates the overlay was toggled without a session.
var ErrNoSession = errors.New("no session for data log")
