package domain

import "errors"

var (
	// ErrNetwork marks transport or HTTP status failures.
	ErrNetwork = errors.New("network error")
	// ErrAuth marks a rejected login.
	ErrAuth = errors.New("authentication failed")
	// ErrProtocol marks a response envelope without a success sentinel.
	ErrProtocol = errors.New("protocol error")
	// ErrData marks a malformed or missing field.
	ErrData = errors.New("malformed data")
)

// IsFatal reports whether err must abort the whole run instead of a single leaf or item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrProtocol)
}
