package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not
	// match. The message is shown to end users and should not enable
	// account enumeration.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrPermissionDenied is returned when a role-gated operation is
	// attempted by a role outside its allowed set. No state is mutated.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrLastAdminProtected guards the invariant that at least one admin
	// account exists at all times.
	ErrLastAdminProtected = errors.New("at least one admin account must remain")

	// ErrSelfDeleteForbidden blocks deleting one's own account.
	ErrSelfDeleteForbidden = errors.New("cannot delete your own account")

	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameRequired = errors.New("username required")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrPasswordMismatch = errors.New("password confirmation does not match")
	ErrInvalidRole      = errors.New("unknown role")

	ErrVisitorNotFound = errors.New("visitor not found")
	// ErrInvalidTransition is returned when a lifecycle operation is called
	// on a visitor whose current status does not permit it.
	ErrInvalidTransition     = errors.New("visitor status does not allow this transition")
	ErrVisitorFieldsRequired = errors.New("visitor name, block and house number are required")

	ErrUnitFieldsRequired = errors.New("block and house number are required")
	ErrDuplicateUnit      = errors.New("unit already exists")

	ErrThreadNotFound = errors.New("chat thread not found")
	// ErrThreadLocked is returned when a resident replies to a thread after
	// staff has taken it over. The lock is permanent.
	ErrThreadLocked    = errors.New("thread is locked after a staff reply")
	ErrMessageRequired = errors.New("message text required")
)
