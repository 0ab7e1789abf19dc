package models

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"sigil/internal/policy"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	strutil "sigil/pkg/platform/strings"
)

const maxAppNameLen = 128

// Client is a relying-party application registered with the broker.
//
// Invariants:
//   - AppName is non-empty and at most 128 characters
//   - every redirect URI is absolute and not a script or data URI
//   - ClientSecretHash is a bcrypt hash and never leaves the server
//   - managed clients are owned by the server and reject admin edits
type Client struct {
	ClientID          id.ClientID `json:"client_id"`
	ClientSecretHash  string      `json:"-"`
	AppName           string      `json:"app_name"`
	AppDescription    string      `json:"app_description"`
	RedirectURIs      []string    `json:"redirect_uris"`
	IsManaged         bool        `json:"is_managed"`
	IsDisabled        bool        `json:"is_disabled"`
	DefaultAllowed    bool        `json:"default_allowed"`
	AllowExplicitFlow bool        `json:"allow_explicit_flow"`
	AllowImplicitFlow bool        `json:"allow_implicit_flow"`
	CreatedAt         time.Time   `json:"created_at"`
}

// NewClient builds an unmanaged client from admin input.
func NewClient(clientID id.ClientID, secretHash string, in ClientInput, now time.Time) (*Client, error) {
	if clientID.IsNil() {
		return nil, dErrors.BadRequest("client_id cannot be empty")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		ClientID:         clientID,
		ClientSecretHash: secretHash,
		CreatedAt:        now,
	}
	c.Apply(in)
	return c, nil
}

// Apply copies every admin-editable field from in.
func (c *Client) Apply(in ClientInput) {
	c.AppName = in.AppName
	c.AppDescription = in.AppDescription
	c.RedirectURIs = slices.Clone(in.RedirectURIs)
	c.IsDisabled = in.IsDisabled
	c.DefaultAllowed = in.DefaultAllowed
	c.AllowExplicitFlow = in.AllowExplicitFlow
	c.AllowImplicitFlow = in.AllowImplicitFlow
}

// HasRedirectURI reports an exact match against a registered URI.
func (c *Client) HasRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// App is the view the policy resolver needs.
func (c *Client) App() policy.App {
	return policy.App{ClientID: c.ClientID, DefaultAllowed: c.DefaultAllowed}
}

// ClientInput is the admin-editable part of a client.
type ClientInput struct {
	AppName           string   `json:"app_name"`
	AppDescription    string   `json:"app_description"`
	RedirectURIs      []string `json:"redirect_uris"`
	IsDisabled        bool     `json:"is_disabled"`
	DefaultAllowed    bool     `json:"default_allowed"`
	AllowImplicitFlow bool     `json:"allow_implicit_flow"`
	AllowExplicitFlow bool     `json:"allow_explicit_flow"`
}

func (in *ClientInput) Normalize() {
	in.AppName = strings.TrimSpace(in.AppName)
	in.AppDescription = strings.TrimSpace(in.AppDescription)
	in.RedirectURIs = strutil.DedupeAndTrim(in.RedirectURIs)
}

func (in ClientInput) Validate() error {
	if in.AppName == "" {
		return dErrors.BadRequest("app_name is required")
	}
	if len(in.AppName) > maxAppNameLen {
		return dErrors.BadRequest("app_name must be 128 characters or less")
	}
	for _, u := range in.RedirectURIs {
		if !IsSafeRedirectURI(u) {
			return dErrors.InvalidRedirectURI(u)
		}
	}
	return nil
}

// IsSafeRedirectURI accepts absolute URLs whose scheme cannot execute script
// in the browser.
func IsSafeRedirectURI(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "javascript", "data", "vbscript":
		return false
	}
	return true
}

// Created carries the only copy of a newly issued secret.
type Created struct {
	Client       *Client `json:"client"`
	ClientSecret string  `json:"client_secret"`
}

// Detail is the admin view of a client and every override attached to it.
type Detail struct {
	Client                   *Client                          `json:"client"`
	UserPermissionOverrides  []policy.UserPermissionOverride  `json:"user_permission_overrides"`
	GroupPermissionOverrides []policy.GroupPermissionOverride `json:"group_permission_overrides"`
	UserRoleOverrides        []policy.UserRoleOverride        `json:"user_role_overrides"`
	GroupRoleOverrides       []policy.GroupRoleOverride       `json:"group_role_overrides"`
}

// GroupPermissionOverrides is both the request and response body of the bulk
// replace endpoint.
type GroupPermissionOverrides struct {
	Client    *Client                          `json:"client,omitempty"`
	Overrides []policy.GroupPermissionOverride `json:"group_permission_overrides"`
}

type GroupRoleOverrides struct {
	Client    *Client                    `json:"client,omitempty"`
	Overrides []policy.GroupRoleOverride `json:"group_role_overrides"`
}

// Grant is the body of the single user override endpoints.
type Grant struct {
	Granted *bool `json:"granted"`
}

// ValidateGroupPermissionOverrides rejects a bulk body naming a group twice.
func ValidateGroupPermissionOverrides(overrides []policy.GroupPermissionOverride) error {
	seen := make(map[id.GroupID]struct{}, len(overrides))
	for _, o := range overrides {
		if o.GroupID.IsNil() {
			return dErrors.BadRequest("group_id is required")
		}
		if _, dup := seen[o.GroupID]; dup {
			return dErrors.BadRequest("duplicate override for group " + o.GroupID.String())
		}
		seen[o.GroupID] = struct{}{}
	}
	return nil
}

func ValidateGroupRoleOverrides(overrides []policy.GroupRoleOverride) error {
	type key struct {
		group id.GroupID
		role  string
	}
	seen := make(map[key]struct{}, len(overrides))
	for _, o := range overrides {
		if o.GroupID.IsNil() {
			return dErrors.BadRequest("group_id is required")
		}
		if err := ValidateRole(o.Role); err != nil {
			return err
		}
		k := key{o.GroupID, o.Role}
		if _, dup := seen[k]; dup {
			return dErrors.BadRequest("duplicate override for role " + o.Role + " in group " + o.GroupID.String())
		}
		seen[k] = struct{}{}
	}
	return nil
}

const maxRoleLen = 64

func ValidateRole(role string) error {
	if strings.TrimSpace(role) == "" {
		return dErrors.BadRequest("role is required")
	}
	if len(role) > maxRoleLen {
		return dErrors.BadRequest("role must be 64 characters or less")
	}
	return nil
}
