// Package ceremony adapts go-webauthn to the passkey registration and
// discoverable login flows. Session data never touches server storage; the
// caller signs it into a short-lived challenge token.
package ceremony

import (
	"bytes"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"sigil/internal/platform/config"
)

// Account is the WebAuthn view of a user. Handle is the user's credential
// uuid, which the authenticator returns as the user handle on login.
type Account struct {
	Handle      uuid.UUID
	Username    string
	DisplayName string
	Credentials []webauthn.Credential
}

func (a *Account) WebAuthnID() []byte {
	b := a.Handle
	return b[:]
}

func (a *Account) WebAuthnName() string                       { return a.Username }
func (a *Account) WebAuthnDisplayName() string                { return a.DisplayName }
func (a *Account) WebAuthnCredentials() []webauthn.Credential { return a.Credentials }

// Ceremony runs the WebAuthn relying-party side.
type Ceremony struct {
	wa *webauthn.WebAuthn
}

func New(cfg config.WebAuthnConfig) (*Ceremony, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPDisplayName,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}
	return &Ceremony{wa: wa}, nil
}

// BeginRegistration requires a resident key and excludes the account's
// existing credentials so an authenticator cannot register twice.
func (c *Ceremony) BeginRegistration(acct *Account) (*protocol.CredentialCreation, *webauthn.SessionData, error) {
	exclude := make([]protocol.CredentialDescriptor, 0, len(acct.Credentials))
	for _, cred := range acct.Credentials {
		exclude = append(exclude, cred.Descriptor())
	}
	return c.wa.BeginRegistration(acct,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
		webauthn.WithExclusions(exclude),
	)
}

// FinishRegistration parses the browser's attestation and verifies it
// against session.
func (c *Ceremony) FinishRegistration(acct *Account, session webauthn.SessionData, raw []byte) (*webauthn.Credential, error) {
	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse attestation: %w", err)
	}
	return c.wa.CreateCredential(acct, session, parsed)
}

func (c *Ceremony) BeginLogin() (*protocol.CredentialAssertion, *webauthn.SessionData, error) {
	return c.wa.BeginDiscoverableLogin()
}

// FinishLogin verifies a discoverable assertion against acct's credentials.
// The returned credential carries the updated sign counter.
func (c *Ceremony) FinishLogin(acct *Account, session webauthn.SessionData, raw []byte) (*webauthn.Credential, error) {
	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse assertion: %w", err)
	}
	return c.wa.ValidateDiscoverableLogin(func(_, userHandle []byte) (webauthn.User, error) {
		if !bytes.Equal(userHandle, acct.WebAuthnID()) {
			return nil, fmt.Errorf("user handle does not match account")
		}
		return acct, nil
	}, session, parsed)
}
