package service

import "errors"

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrRegistrationClosed    = errors.New("registration is not open for this event")
	ErrDuplicateRegistration = errors.New("member already has an active registration for this event")
	ErrAlreadyTerminal       = errors.New("registration is already in a terminal state")
	ErrUnauthorized          = errors.New("actor is not allowed to perform this operation")
	ErrTransient             = errors.New("operation aborted by a concurrent conflict, retry")
)
