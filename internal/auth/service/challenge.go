package service

import (
	"encoding/base64"
	"encoding/json"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// registrationChallenge carries the registration ceremony state between
// start and finish. CredentialUUID ties it to the user it was issued for.
type registrationChallenge struct {
	CredentialUUID uuid.UUID            `json:"credential_uuid"`
	Session        webauthn.SessionData `json:"reg"`
	jwt.RegisteredClaims
}

type loginChallenge struct {
	Session webauthn.SessionData `json:"auth"`
	jwt.RegisteredClaims
}

// assertionPeek reads the fields of a browser credential that are needed
// before the ceremony runs. Both rawId and userHandle are base64url.
type assertionPeek struct {
	RawID    protocol.URLEncodedBase64 `json:"rawId"`
	Response struct {
		UserHandle protocol.URLEncodedBase64 `json:"userHandle"`
	} `json:"response"`
}

func peekCredential(raw []byte) (assertionPeek, error) {
	var p assertionPeek
	err := json.Unmarshal(raw, &p)
	return p, err
}

// encodeCredentialID is the stored form of an authenticator credential id.
func encodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}
