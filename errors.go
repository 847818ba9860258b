package session

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	textCodeProfileSyncDegraded  = "PROFILE_SYNC_DEGRADED"
	textCodeTokenRefreshFailed   = "TOKEN_REFRESH_FAILED"
	textCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	textCodeNoActiveSession      = "NO_ACTIVE_SESSION"
)

// ErrAuthenticationFailed is returned when the identity provider
// rejects a sign-in, sign-up, or password-reset attempt. It is the only
// error kind surfaced to end users; it is never retried automatically.
var ErrAuthenticationFailed = goerrors.New("authentication failed", goerrors.CategoryAuth).
	WithTextCode(textCodeAuthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenRefreshFailed is returned when a silent credential renewal
// fails. It is logged and dropped; the next provider event recovers.
var ErrTokenRefreshFailed = goerrors.New("token refresh failed", goerrors.CategoryOperation).
	WithTextCode(textCodeTokenRefreshFailed)

// ErrNoActiveSession is returned when a credential is requested while
// no identity is signed in.
var ErrNoActiveSession = goerrors.New("no active session", goerrors.CategoryAuth).
	WithTextCode(textCodeNoActiveSession).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty required inputs.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation)

// ErrMismatchedHashAndPassword is returned on a bad password. The
// message is deliberately the same as an unknown account.
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeAuthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// NewAuthenticationFailed wraps a provider rejection with the reason
// preserved for the caller.
func NewAuthenticationFailed(err error, reason string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryAuth, reason).
		WithTextCode(textCodeAuthenticationFailed).
		WithCode(goerrors.CodeUnauthorized)
}

// NewProfileSyncDegraded marks a profile read/write failure that
// happened after the identity was confirmed authentic. Callers absorb
// it: the session still reaches the authenticated status.
func NewProfileSyncDegraded(err error, identityID string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, "profile sync degraded").
		WithTextCode(textCodeProfileSyncDegraded).
		WithMetadata(map[string]any{"identity_id": identityID})
}

// NewTokenRefreshFailed wraps a renewal failure.
func NewTokenRefreshFailed(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, "token refresh failed").
		WithTextCode(textCodeTokenRefreshFailed)
}

// NewProfileNotFound is the not-found error profile stores return when
// no record exists for an identity id.
func NewProfileNotFound(identityID string) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("profile not found for identity %q", identityID), goerrors.CategoryNotFound).
		WithTextCode(textCodeProfileNotFound)
}

// ErrTokenExpired is returned for credentials past their expiry.
var ErrTokenExpired = goerrors.New("authentication token expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for credentials that cannot be parsed.
var ErrTokenMalformed = goerrors.New("invalid authentication token", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToFindSession is the error when a request has no cookie
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// errStaleRenewal marks a renewed credential that lost the race with a
// newer provider event; the result is discarded and renewal stops.
var errStaleRenewal = goerrors.New("credential renewal superseded by a newer session", goerrors.CategoryOperation)

// IsAuthenticationFailed checks for provider rejections.
func IsAuthenticationFailed(err error) bool {
	return hasTextCode(err, textCodeAuthenticationFailed)
}

// IsProfileSyncDegraded checks for absorbed profile-store failures.
func IsProfileSyncDegraded(err error) bool {
	return hasTextCode(err, textCodeProfileSyncDegraded)
}

// IsTokenRefreshFailed checks for silent renewal failures.
func IsTokenRefreshFailed(err error) bool {
	return hasTextCode(err, textCodeTokenRefreshFailed)
}

// IsProfileNotFound checks whether a profile-store read found no
// record for the identity id.
func IsProfileNotFound(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.IsNotFound(err) || hasTextCode(err, textCodeProfileNotFound)
}

// IsTokenExpiredError will check for expired tokens, either our own
// sentinel or a raw jwt parse error.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return hasTextCode(err, "TOKEN_EXPIRED") ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return hasTextCode(err, "TOKEN_MALFORMED") ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}
