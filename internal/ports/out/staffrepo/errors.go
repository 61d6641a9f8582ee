package staffrepo

import "errors"

var (
	// ErrNotFound indicates no staff user is registered for the subject.
	ErrNotFound = errors.New("staff user not found")

	// ErrSubjectAlreadyBound indicates a staff user already exists for the provided subject.
	ErrSubjectAlreadyBound = errors.New("staff subject already bound")

	// ErrAlreadyExists indicates a staff user already exists with the provided ID.
	ErrAlreadyExists = errors.New("staff user already exists")
)
