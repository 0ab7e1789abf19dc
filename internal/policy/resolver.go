package policy

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	id "sigil/pkg/domain"
)

// OverrideStore reads the per-application overrides.
type OverrideStore interface {
	// FindUserPermissionOverride returns nil when the user has no override.
	FindUserPermissionOverride(ctx context.Context, userID id.UserID, clientID id.ClientID) (*UserPermissionOverride, error)
	ListGroupPermissionOverrides(ctx context.Context, clientID id.ClientID) ([]GroupPermissionOverride, error)
	ListUserRoleOverrides(ctx context.Context, userID id.UserID, clientID id.ClientID) ([]UserRoleOverride, error)
	ListGroupRoleOverrides(ctx context.Context, clientID id.ClientID) ([]GroupRoleOverride, error)
}

// MembershipStore lists the groups a user belongs to.
type MembershipStore interface {
	ListGroupIDsForUser(ctx context.Context, userID id.UserID) ([]id.GroupID, error)
}

// App is the slice of a client application the fold needs.
type App struct {
	ClientID       id.ClientID
	DefaultAllowed bool
}

type Resolver struct {
	overrides   OverrideStore
	memberships MembershipStore
}

func NewResolver(overrides OverrideStore, memberships MembershipStore) *Resolver {
	return &Resolver{overrides: overrides, memberships: memberships}
}

// IsUserAllowed loads the overrides for app and folds them.
func (r *Resolver) IsUserAllowed(ctx context.Context, userID id.UserID, app App) (bool, error) {
	ctx, span := otel.Tracer("sigil/policy").Start(ctx, "policy.IsUserAllowed")
	defer span.End()
	span.SetAttributes(attribute.String("client_id", app.ClientID.String()))

	var (
		userOverride   *UserPermissionOverride
		groupOverrides []GroupPermissionOverride
		groups         []id.GroupID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		userOverride, err = r.overrides.FindUserPermissionOverride(gctx, userID, app.ClientID)
		if err != nil {
			return fmt.Errorf("load user permission override: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		groupOverrides, err = r.overrides.ListGroupPermissionOverrides(gctx, app.ClientID)
		if err != nil {
			return fmt.Errorf("load group permission overrides: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		groups, err = r.memberships.ListGroupIDsForUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("load group memberships: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return false, err
	}

	var granted *bool
	if userOverride != nil {
		granted = &userOverride.Granted
	}
	allowed := ResolveAccess(app.DefaultAllowed, granted, groupOverrides, groups)
	span.SetAttributes(attribute.Bool("allowed", allowed))
	return allowed, nil
}

// UserRoles loads the role overrides for clientID and folds them.
func (r *Resolver) UserRoles(ctx context.Context, userID id.UserID, clientID id.ClientID) ([]string, error) {
	ctx, span := otel.Tracer("sigil/policy").Start(ctx, "policy.UserRoles")
	defer span.End()

	var (
		groupOverrides []GroupRoleOverride
		userOverrides  []UserRoleOverride
		groups         []id.GroupID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		groupOverrides, err = r.overrides.ListGroupRoleOverrides(gctx, clientID)
		if err != nil {
			return fmt.Errorf("load group role overrides: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		userOverrides, err = r.overrides.ListUserRoleOverrides(gctx, userID, clientID)
		if err != nil {
			return fmt.Errorf("load user role overrides: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		groups, err = r.memberships.ListGroupIDsForUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("load group memberships: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ResolveRoles(groupOverrides, groups, userOverrides), nil
}
