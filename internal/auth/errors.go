package auth

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("auth: not found")
	// ErrAlreadyExists indicates a uniqueness conflict (duplicate email).
	ErrAlreadyExists = errors.New("auth: already exists")
	// ErrInvalidCredentials is the single outward-facing credential failure.
	// Unknown email and wrong password both collapse into it.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken is the single outward-facing token failure. Bad
	// signature, expiry, issuer, audience and kind mismatches all collapse
	// into it; the distinction never reaches a client.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrWrongTokenKind indicates a structurally valid token of the wrong
	// kind, e.g. a refresh token presented as a bearer credential. Kept
	// separate from ErrInvalidToken so the transport can report its stable
	// code; both map to the same HTTP status.
	ErrWrongTokenKind = errors.New("auth: wrong token kind")
	// ErrMalformedHash indicates a stored credential hash that bcrypt cannot
	// parse. Unlike a mismatch this is data corruption and fails hard.
	ErrMalformedHash = errors.New("auth: malformed credential hash")
)
