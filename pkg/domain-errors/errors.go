// Package domainerrors is the closed error taxonomy exposed to API callers.
//
// Every failure a service returns to a handler is an *Error carrying one of the
// Code values below. Handlers never invent codes; they translate an *Error into
// the {error:{code,message}} envelope via pkg/platform/httputil.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidChallenge    Code = "invalid_challenge"
	CodeExpiredRegistration Code = "expired_registration"
	CodeInvalidCredential   Code = "invalid_credential"
	CodeUserDeleted         Code = "user_deleted"
	CodeUserSuspended       Code = "user_suspended"
	CodeInternal            Code = "internal_server_error"
	CodeSessionExpired      Code = "session_expired"
	CodeLoginRequired       Code = "login_required"
	CodeAdminRequired       Code = "admin_required"
	CodeUnknownClient       Code = "unknown_client"
	CodeUnknownGroup        Code = "unknown_group"
	CodeUnknownUser         Code = "unknown_user"
	CodeGroupSlugExists     Code = "group_slug_exists"
	CodeUsernameExists      Code = "username_exists"
	CodeEmailExists         Code = "email_exists"
	CodeAppDisabled         Code = "app_disabled"
	CodeManagedObject       Code = "managed_object"
	CodeBadRequest          Code = "bad_request"
	CodeACLDenied           Code = "oauth_acl_denied"
	CodeInvalidRedirectURI  Code = "invalid_redirect_uri"

	// Codes raised through Other. They share the generic 400 status.
	CodeEmailChanged                Code = "email_changed"
	CodeCredentialAlreadyRegistered Code = "credential_already_registered"
	CodeWebauthn                    Code = "webauthn_error"
	CodeInvalidResponseType         Code = "invalid_response_type"
	CodeInvalidResponseMode         Code = "invalid_response_mode"
	CodeRateLimited                 Code = "rate_limited"
	CodeUserNotInGroup              Code = "user_not_in_group"
)

var messages = map[Code]string{
	CodeInvalidChallenge:    "You took too long to complete the authentication flow, please try again.",
	CodeExpiredRegistration: "This registration link appears to have expired. Please ask an administrator for another link.",
	CodeInvalidCredential:   "This passkey is not valid or has been removed from the account you are trying to sign into.",
	CodeUserDeleted:         "It looks like this account has been deleted or no longer exists.",
	CodeUserSuspended:       "This action is currently unavailable because your account is suspended.",
	CodeInternal:            "An unknown exception occurred, please try again later.",
	CodeSessionExpired:      "Your session is no longer valid, and you will need to sign in again.",
	CodeLoginRequired:       "You must login to perform this action.",
	CodeAdminRequired:       "You don't have permission to do that.",
	CodeUnknownClient:       "Sorry, but we couldn't find this app. This can occur if the app was deleted or the client_id parameter is incorrect.",
	CodeUnknownGroup:        "Sorry, but this group doesn't exist or has been deleted.",
	CodeUnknownUser:         "Sorry, but this user doesn't exist or has been deleted.",
	CodeGroupSlugExists:     "The group slug you provided is already in use by another group.",
	CodeUsernameExists:      "This username is already in use by another user.",
	CodeEmailExists:         "This email is already in use by another user.",
	CodeAppDisabled:         "Sorry, but this app is currently disabled.",
	CodeManagedObject:       "You can't do that because doing so may cause issues with the identity server.",
	CodeBadRequest:          "The request was malformed.",

	CodeEmailChanged:                "The email associated with this account has changed, so this link is no longer valid.",
	CodeCredentialAlreadyRegistered: "This credential is already registered!",
	CodeWebauthn:                    "The passkey response could not be verified, please try again.",
	CodeInvalidResponseType:         "The response_type parameter is invalid or not enabled for this app.",
	CodeInvalidResponseMode:         "The response_mode parameter must be either query or fragment.",
	CodeRateLimited:                 "Too many requests, please slow down.",
	CodeUserNotInGroup:              "The targeted user is not in the group you are trying to remove them from. This may mean they have already been removed.",
}

var statuses = map[Code]int{
	CodeInvalidChallenge:    http.StatusForbidden,
	CodeExpiredRegistration: http.StatusForbidden,
	CodeUserSuspended:       http.StatusForbidden,
	CodeAdminRequired:       http.StatusForbidden,
	CodeInternal:            http.StatusInternalServerError,
	CodeLoginRequired:       http.StatusUnauthorized,
	CodeRateLimited:         http.StatusTooManyRequests,
}

// Error is a domain error with a stable code and a caller-safe message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports equality on code and message so tests can compare against a
// freshly constructed value with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Status is the HTTP status for the error's code.
func (e *Error) Status() int {
	return StatusFor(e.Code)
}

// PublicMessage is what the caller sees. Internal errors never leak details.
func (e *Error) PublicMessage() string {
	if e.Code == CodeInternal {
		return messages[CodeInternal]
	}
	return e.Message
}

// New builds an error with an explicit message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a cause. The cause is logged, never rendered.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// Of builds an error using the canonical message for code.
func Of(code Code) error {
	return &Error{Code: code, Message: MessageFor(code)}
}

// Internal wraps an unexpected failure.
func Internal(err error, message string) error {
	return Wrap(err, CodeInternal, message)
}

func ACLDenied(appName string) error {
	return &Error{
		Code:    CodeACLDenied,
		Message: fmt.Sprintf("You cannot access %s because you are failing the ACL checks to use this service. "+
			"An administrator may need to add you to an identity group or grant you permission to use this app.", appName),
	}
}

func InvalidRedirectURI(uri string) error {
	return &Error{
		Code:    CodeInvalidRedirectURI,
		Message: fmt.Sprintf("The redirect_uri %s is not valid. Check that it exactly matches one of the added URIs "+
			"for this app and is a compliant OAuth redirect URI.", uri),
	}
}

// Other is the escape hatch for codes that carry their own message.
func Other(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func BadRequest(message string) error {
	return &Error{Code: CodeBadRequest, Message: message}
}

// HasCode reports whether err is (or wraps) a domain error with code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// As extracts the domain error, if any.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func MessageFor(code Code) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return string(code)
}

func StatusFor(code Code) int {
	if s, ok := statuses[code]; ok {
		return s
	}
	return http.StatusBadRequest
}
