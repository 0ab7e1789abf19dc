// Package domain holds the typed identifiers shared across packages.
//
// Numeric identifiers are database serials. Session ids and client ids are
// snowflakes; session ids are rendered as JSON strings so browser clients do
// not lose precision.
package domain

import (
	"strconv"
	"strings"

	dErrors "sigil/pkg/domain-errors"
)

type (
	UserID       int64
	GroupID      int64
	CredentialID int64
	SessionID    int64
	ClientID     string
)

func (id UserID) String() string       { return strconv.FormatInt(int64(id), 10) }
func (id GroupID) String() string      { return strconv.FormatInt(int64(id), 10) }
func (id CredentialID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id SessionID) String() string    { return strconv.FormatInt(int64(id), 10) }
func (id ClientID) String() string     { return string(id) }

func (id UserID) IsNil() bool    { return id <= 0 }
func (id GroupID) IsNil() bool   { return id <= 0 }
func (id SessionID) IsNil() bool { return id <= 0 }
func (id ClientID) IsNil() bool  { return id == "" }

// MarshalText renders the session id as a string inside JSON documents.
func (id SessionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parsePositive(kind, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.BadRequest(kind + " is required")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.BadRequest("invalid " + kind)
	}
	if v <= 0 {
		return 0, dErrors.BadRequest("invalid " + kind)
	}
	return v, nil
}

func ParseUserID(s string) (UserID, error) {
	v, err := parsePositive("user id", s)
	return UserID(v), err
}

func ParseGroupID(s string) (GroupID, error) {
	v, err := parsePositive("group id", s)
	return GroupID(v), err
}

func ParseSessionID(s string) (SessionID, error) {
	v, err := parsePositive("session id", s)
	return SessionID(v), err
}

// ParseClientID accepts the decimal snowflake form only.
func ParseClientID(s string) (ClientID, error) {
	v, err := parsePositive("client id", s)
	if err != nil {
		return "", err
	}
	return ClientID(strconv.FormatInt(v, 10)), nil
}
