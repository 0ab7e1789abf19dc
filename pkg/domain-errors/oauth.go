package domainerrors

import (
	"errors"
	"net/http"
)

// OAuthCode is the RFC 6749 token endpoint error vocabulary.
type OAuthCode string

const (
	OAuthInvalidRequest       OAuthCode = "invalid_request"
	OAuthInvalidClient        OAuthCode = "invalid_client"
	OAuthInvalidGrant         OAuthCode = "invalid_grant"
	OAuthUnsupportedGrantType OAuthCode = "unsupported_grant_type"
)

// OAuthError is rendered as {error, error_description} instead of the
// regular envelope.
type OAuthError struct {
	Code        OAuthCode
	Description string
	Err         error
}

func (e *OAuthError) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Description + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Description
}

func (e *OAuthError) Unwrap() error { return e.Err }

func (e *OAuthError) Status() int {
	if e.Code == OAuthInvalidClient {
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

func NewOAuth(code OAuthCode, description string) error {
	return &OAuthError{Code: code, Description: description}
}

func WrapOAuth(err error, code OAuthCode, description string) error {
	return &OAuthError{Code: code, Description: description, Err: err}
}

// HasOAuthCode reports whether err is an OAuth error with code.
func HasOAuthCode(err error, code OAuthCode) bool {
	var oe *OAuthError
	if errors.As(err, &oe) {
		return oe.Code == code
	}
	return false
}
