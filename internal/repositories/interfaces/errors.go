package interfaces

import "errors"

var (
	// ErrNotFound means the id or filter did not resolve to a document.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned on unique-index violations.
	ErrDuplicate = errors.New("duplicate document")
	// ErrAlreadyAccepted means the volunteer is already in accepted_by.
	ErrAlreadyAccepted = errors.New("sos already accepted by volunteer")
	// ErrAlreadyResolved means the case left the open state.
	ErrAlreadyResolved = errors.New("sos already resolved")
)
