package chat

import "errors"

var (
	// ErrEmptyMessage indicates the message is blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrUnknownSession indicates the session isn't registered.
	ErrUnknownSession = errors.New("unknown session")
	// ErrSendInFlight indicates a send is already pending for the session.
	ErrSendInFlight = errors.New("send already in flight")
)
