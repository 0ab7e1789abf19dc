package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/stretchr/testify/require"
)

const (
	flagUserPresent  = 0x01
	flagUserVerified = 0x04
	flagAttested     = 0x40
)

// Authenticator is a software passkey holding one ES256 resident credential.
// It answers the options the server sends with "none" attestation.
type Authenticator struct {
	RPID   string
	Origin string

	key          *ecdsa.PrivateKey
	credentialID []byte
	userHandle   []byte
	signCount    uint32
}

func NewAuthenticator(t *testing.T, rpID, origin string) *Authenticator {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	credID := make([]byte, 32)
	_, err = rand.Read(credID)
	require.NoError(t, err)
	return &Authenticator{RPID: rpID, Origin: origin, key: key, credentialID: credID}
}

// CredentialID is the raw credential id.
func (a *Authenticator) CredentialID() []byte { return a.credentialID }

// UserHandle is the user id the credential was registered for.
func (a *Authenticator) UserHandle() []byte { return a.userHandle }

type publicKeyOptions struct {
	PublicKey struct {
		Challenge string `json:"challenge"`
		User      struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"publicKey"`
}

type attestationObject struct {
	Format   string         `cbor:"fmt"`
	AttStmt  map[string]any `cbor:"attStmt"`
	AuthData []byte         `cbor:"authData"`
}

// Register answers a serialized protocol.CredentialCreation and returns
// the browser's PublicKeyCredential JSON.
func (a *Authenticator) Register(t *testing.T, creationJSON []byte) json.RawMessage {
	t.Helper()
	var opts publicKeyOptions
	require.NoError(t, json.Unmarshal(creationJSON, &opts))
	handle, err := base64.RawURLEncoding.DecodeString(opts.PublicKey.User.ID)
	require.NoError(t, err)
	a.userHandle = handle

	cose, err := webauthncbor.Marshal(webauthncose.EC2PublicKeyData{
		PublicKeyData: webauthncose.PublicKeyData{
			KeyType:   int64(webauthncose.EllipticKey),
			Algorithm: int64(webauthncose.AlgES256),
		},
		Curve:  1, // P-256
		XCoord: a.key.X.FillBytes(make([]byte, 32)),
		YCoord: a.key.Y.FillBytes(make([]byte, 32)),
	})
	require.NoError(t, err)

	authData := a.authData(flagUserPresent | flagUserVerified | flagAttested)
	authData = append(authData, make([]byte, 16)...) // zero AAGUID
	authData = binary.BigEndian.AppendUint16(authData, uint16(len(a.credentialID)))
	authData = append(authData, a.credentialID...)
	authData = append(authData, cose...)

	attestation, err := webauthncbor.Marshal(attestationObject{
		Format:   "none",
		AttStmt:  map[string]any{},
		AuthData: authData,
	})
	require.NoError(t, err)

	return a.credential(t, map[string]string{
		"clientDataJSON":    a.clientData(t, protocol.CreateCeremony, opts.PublicKey.Challenge),
		"attestationObject": base64.RawURLEncoding.EncodeToString(attestation),
	})
}

// Login answers a serialized protocol.CredentialAssertion.
func (a *Authenticator) Login(t *testing.T, assertionJSON []byte) json.RawMessage {
	t.Helper()
	var opts publicKeyOptions
	require.NoError(t, json.Unmarshal(assertionJSON, &opts))
	a.signCount++

	authData := a.authData(flagUserPresent | flagUserVerified)
	clientData := a.clientData(t, protocol.AssertCeremony, opts.PublicKey.Challenge)
	rawClientData, err := base64.RawURLEncoding.DecodeString(clientData)
	require.NoError(t, err)
	clientHash := sha256.Sum256(rawClientData)
	digest := sha256.Sum256(append(append([]byte{}, authData...), clientHash[:]...))
	sig, err := ecdsa.SignASN1(rand.Reader, a.key, digest[:])
	require.NoError(t, err)

	return a.credential(t, map[string]string{
		"clientDataJSON":    clientData,
		"authenticatorData": base64.RawURLEncoding.EncodeToString(authData),
		"signature":         base64.RawURLEncoding.EncodeToString(sig),
		"userHandle":        base64.RawURLEncoding.EncodeToString(a.userHandle),
	})
}

func (a *Authenticator) authData(flags byte) []byte {
	rpHash := sha256.Sum256([]byte(a.RPID))
	out := append([]byte{}, rpHash[:]...)
	out = append(out, flags)
	return binary.BigEndian.AppendUint32(out, a.signCount)
}

func (a *Authenticator) clientData(t *testing.T, ceremony protocol.CeremonyType, challenge string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]string{
		"type":      string(ceremony),
		"challenge": challenge,
		"origin":    a.Origin,
	})
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func (a *Authenticator) credential(t *testing.T, response map[string]string) json.RawMessage {
	t.Helper()
	id := base64.RawURLEncoding.EncodeToString(a.credentialID)
	raw, err := json.Marshal(map[string]any{
		"id":       id,
		"rawId":    id,
		"type":     "public-key",
		"response": response,
	})
	require.NoError(t, err)
	return raw
}
