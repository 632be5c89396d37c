package auth

import "errors"

var (
	// ErrNotFound means a source had nothing to offer. Resolution falls
	// through to the next source.
	ErrNotFound = errors.New("no credential in source")
	// ErrMalformed means a source produced bytes that did not decode into
	// a credential. Treated like ErrNotFound for resolution, logged apart.
	ErrMalformed = errors.New("malformed credential")
	// ErrExpired means a token is past its usable window.
	ErrExpired = errors.New("credential expired")
	// ErrRefreshFailed means the refresh exchange did not produce a new
	// token pair. The resolution path that needed it is abandoned.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrInsecurePermissions means the plaintext credential file could not
	// be kept owner-only on write. Surfaced to the caller, never absorbed.
	ErrInsecurePermissions = errors.New("credential file permissions not owner-only")
	// ErrNoCredential means every source was exhausted.
	ErrNoCredential = errors.New("no credentials found")
)
