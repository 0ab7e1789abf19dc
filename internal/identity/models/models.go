package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/email"
)

// User is an account. CredentialUUID groups the user's passkeys and doubles
// as the WebAuthn user handle.
type User struct {
	ID             id.UserID `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	IsSuspended    bool      `json:"is_suspended"`
	CredentialUUID uuid.UUID `json:"credential_uuid"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

// Group is a named set of users that policy overrides can target. Managed
// groups are owned by the server and reject admin edits.
type Group struct {
	ID          id.GroupID `json:"id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsManaged   bool       `json:"is_managed"`
}

// UserInput is the admin-editable part of a user.
type UserInput struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	IsSuspended bool   `json:"is_suspended"`
	IsAdmin     bool   `json:"is_admin"`
}

func (in *UserInput) Normalize() {
	if normalized, ok := email.Normalize(in.Email); ok {
		in.Email = normalized
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		in.Name = email.DisplayNameFromEmail(in.Email)
	}
}

func (in UserInput) Validate() error {
	if in.Username == "" {
		return dErrors.BadRequest("username is required")
	}
	if _, ok := email.Normalize(in.Email); !ok {
		return dErrors.BadRequest("email is invalid")
	}
	return nil
}

// GroupInput is the admin-editable part of a group.
type GroupInput struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in *GroupInput) Normalize() {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
}

func (in GroupInput) Validate() error {
	if in.Slug == "" {
		return dErrors.BadRequest("slug is required")
	}
	if strings.ContainsAny(in.Slug, " \t/") {
		return dErrors.BadRequest("slug must not contain whitespace or slashes")
	}
	if in.Name == "" {
		return dErrors.BadRequest("name is required")
	}
	return nil
}

// UserWithGroups is the detail view of a user.
type UserWithGroups struct {
	User   *User    `json:"user"`
	Groups []*Group `json:"groups"`
}

// GroupMembers is returned by member listing and membership changes.
// TargetedUser is set only for membership changes.
type GroupMembers struct {
	Group        *Group  `json:"group"`
	TargetedUser *User   `json:"targeted_user,omitempty"`
	Members      []*User `json:"members"`
}

// Slugs returns the group slugs in input order.
func Slugs(groups []*Group) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Slug)
	}
	return out
}
