package models

import (
	"encoding/json"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	identity "sigil/internal/identity/models"
	id "sigil/pkg/domain"
)

// DefaultCredentialName labels a passkey until the user renames it.
const DefaultCredentialName = "Unnamed Passkey"

// Credential is a registered passkey. CredentialID is the base64url form of
// the authenticator's raw credential id and is unique across all users.
type Credential struct {
	ID             id.CredentialID     `json:"id"`
	Name           string              `json:"name"`
	CredentialUUID uuid.UUID           `json:"-"`
	CredentialID   string              `json:"credential_id"`
	Passkey        webauthn.Credential `json:"-"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Session is a refreshable login. Only the argon2id hash of the refresh
// secret is stored.
type Session struct {
	SessionID       id.SessionID    `json:"session_id"`
	UserID          id.UserID       `json:"user_id"`
	CredentialID    id.CredentialID `json:"webauthn_id"`
	RefreshHash     string          `json:"-"`
	DeviceName      string          `json:"device_name"`
	CreatedAt       time.Time       `json:"created_at"`
	LastRefreshedAt time.Time       `json:"last_refreshed_at"`
}

// Challenge is returned by both ceremony start calls. The client echoes
// ChallengeSignature back on finish; ChallengeResponse goes to
// navigator.credentials.
type Challenge struct {
	ChallengeSignature string `json:"challenge_signature"`
	ChallengeResponse  any    `json:"challenge_response"`
}

type StartRegistrationRequest struct {
	RegistrationToken string `json:"registration_token"`
}

type FinishRegistrationRequest struct {
	ChallengeSignature string          `json:"challenge_signature"`
	RegistrationToken  string          `json:"registration_token"`
	PKCredential       json.RawMessage `json:"pk_credential"`
}

type FinishLoginRequest struct {
	ChallengeSignature string          `json:"challenge_signature"`
	PKCredential       json.RawMessage `json:"pk_credential"`
}

type LoginResult struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Session      *Session       `json:"session"`
	Credential   *Credential    `json:"credential"`
	User         *identity.User `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
