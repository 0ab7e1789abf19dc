package jwttoken

import (
	"github.com/golang-jwt/jwt/v5"

	id "sigil/pkg/domain"
)

// MethodPasskey is the only login method today.
const MethodPasskey = "passkey"

// AccessClaims authenticate first-party API calls. The profile fields are
// advisory for the client; the server always reloads the user.
type AccessClaims struct {
	UserID     id.UserID       `json:"user_id"`
	Method     string          `json:"method"`
	Email      string          `json:"email"`
	Username   string          `json:"username"`
	Name       string          `json:"name"`
	WebauthnID id.CredentialID `json:"webauthn_id"`
	IsAdmin    bool            `json:"is_admin"`
	SessionID  id.SessionID    `json:"session_id"`
	jwt.RegisteredClaims
}

// RefreshClaims bind the raw refresh secret to its session.
type RefreshClaims struct {
	SessionID    id.SessionID `json:"session_id"`
	RefreshToken string       `json:"refresh_token"`
	jwt.RegisteredClaims
}

// RegistrationClaims back the emailed registration link. Email is compared
// against the live user to detect a change after the link was issued.
type RegistrationClaims struct {
	UserID   id.UserID `json:"user_id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	jwt.RegisteredClaims
}
