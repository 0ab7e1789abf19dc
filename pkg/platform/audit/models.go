package audit

import (
	"context"
	"time"

	id "sigil/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks
// can apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers account lifecycle and grants of access.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers failures and revocations worth alerting on.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine issuance. Can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    string
	ClientID  string
	SessionID string
	Reason    string
	RequestID string
	// ActorID is the admin acting on UserID's behalf, when different.
	ActorID string
}

type AuditEvent string

const (
	EventUserCreated          AuditEvent = "user_created"
	EventUserUpdated          AuditEvent = "user_updated"
	EventPasskeyRegistered    AuditEvent = "passkey_registered"
	EventSessionCreated       AuditEvent = "session_created"
	EventSessionRefreshed     AuditEvent = "session_refreshed"
	EventSessionRevoked       AuditEvent = "session_revoked"
	EventAuthFailed           AuditEvent = "auth_failed"
	EventRegistrationSent     AuditEvent = "registration_link_sent"
	EventAuthorizationGrant   AuditEvent = "authorization_granted"
	EventAuthorizationRevoked AuditEvent = "authorization_revoked"
	EventTokenIssued          AuditEvent = "token_issued"
	EventUserInfoAccessed     AuditEvent = "userinfo_accessed"
	EventClientCreated        AuditEvent = "client_created"
	EventClientUpdated        AuditEvent = "client_updated"
	EventClientSecretRotated  AuditEvent = "client_secret_rotated"
	EventOverridesChanged     AuditEvent = "overrides_changed"
	EventGroupCreated         AuditEvent = "group_created"
	EventGroupMembership      AuditEvent = "group_membership_changed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserCreated:        CategoryCompliance,
	EventUserUpdated:        CategoryCompliance,
	EventPasskeyRegistered:  CategoryCompliance,
	EventAuthorizationGrant: CategoryCompliance,
	EventOverridesChanged:   CategoryCompliance,
	EventGroupMembership:    CategoryCompliance,

	EventAuthFailed:           CategorySecurity,
	EventSessionRevoked:       CategorySecurity,
	EventAuthorizationRevoked: CategorySecurity,
	EventClientSecretRotated:  CategorySecurity,
	EventRegistrationSent:     CategorySecurity,

	EventSessionCreated:   CategoryOperations,
	EventSessionRefreshed: CategoryOperations,
	EventTokenIssued:      CategoryOperations,
	EventUserInfoAccessed: CategoryOperations,
	EventClientCreated:    CategoryOperations,
	EventClientUpdated:    CategoryOperations,
	EventGroupCreated:     CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
