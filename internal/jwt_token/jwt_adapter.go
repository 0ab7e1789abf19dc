package jwttoken

import (
	authmw "sigil/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *AccessClaims) *authmw.AccessClaims {
	return &authmw.AccessClaims{
		UserID:       claims.UserID,
		SessionID:    claims.SessionID,
		CredentialID: claims.WebauthnID,
	}
}

// AccessValidator lets the auth middleware verify access tokens.
type AccessValidator struct {
	codec *Codec
}

func NewAccessValidator(codec *Codec) *AccessValidator {
	return &AccessValidator{codec: codec}
}

func (a *AccessValidator) ValidateAccessToken(tokenString string) (*authmw.AccessClaims, error) {
	var claims AccessClaims
	if err := a.codec.Decode(PurposeAccess, tokenString, &claims); err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(&claims), nil
}
