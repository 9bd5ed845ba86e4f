package domain

import "errors"

var (
	// ErrDecode marks a stored token that is structurally malformed.
	ErrDecode = errors.New("malformed token")
	// ErrCrypto marks a token that does not decrypt under the process key.
	ErrCrypto = errors.New("undecryptable token")
)
