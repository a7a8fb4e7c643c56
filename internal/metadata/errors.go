package metadata

import "errors"

var (
	errInvalidUsername = errors.New("username contains invalid characters")
	errUsernameExists   = errors.New("username already exists")
	errGameNotFound     = errors.New("game not found")
)

// IsInvalidUsername reports whether err originates from an invalid username.
func IsInvalidUsername(err error) bool { return errors.Is(err, errInvalidUsername) }

// IsUsernameExists reports whether err originates from a duplicate username.
func IsUsernameExists(err error) bool { return errors.Is(err, errUsernameExists) }

// IsGameNotFound reports whether err originates from a missing game record.
func IsGameNotFound(err error) bool { return errors.Is(err, errGameNotFound) }
