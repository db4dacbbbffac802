package security

import "fmt"

// Role is the caller-supplied persona tag. Role enforcement is a coarse
// capability check, not a full authorization system; the allow-lists below
// are policy data, not engine logic.
type Role string

const (
	RoleProvider    Role = "provider"     // upstream cost-basis vendor
	RoleBrokerAdmin Role = "broker_admin" // broker-side operator
	RoleInternalOps Role = "internal_ops" // internal compliance/review
	RoleAPIClient   Role = "api_client"   // machine integration
	RoleTaxEngine   Role = "tax_engine"   // downstream filing vendor
)

// AllRoles lists every supported persona.
func AllRoles() []Role {
	return []Role{RoleProvider, RoleBrokerAdmin, RoleInternalOps, RoleAPIClient, RoleTaxEngine}
}

// ParseRole validates a raw role tag.
func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles() {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q; expected one of provider, broker_admin, internal_ops, api_client, tax_engine", s)
}

// Capability names one gated operation class.
type Capability string

const (
	CapStartJob       Capability = "start_job"
	CapIngest         Capability = "ingest"
	CapIngestIdentity Capability = "ingest_identity"
	CapLegacyIngest   Capability = "legacy_ingest"
	CapTransform      Capability = "transform"
	CapReconcile      Capability = "reconcile"
	CapExport         Capability = "export"
	CapRead           Capability = "read"
	CapAITranslate    Capability = "ai_translate"
	CapAdmin          Capability = "admin"
)

var policy = map[Capability][]Role{
	CapStartJob:       {RoleBrokerAdmin, RoleInternalOps},
	CapIngest:         {RoleBrokerAdmin, RoleAPIClient},
	CapIngestIdentity: {RoleBrokerAdmin, RoleAPIClient, RoleInternalOps},
	CapLegacyIngest:   {RoleProvider, RoleBrokerAdmin, RoleAPIClient},
	CapTransform:      {RoleBrokerAdmin, RoleInternalOps, RoleTaxEngine},
	CapReconcile:      {RoleBrokerAdmin, RoleInternalOps},
	CapExport:         {RoleBrokerAdmin, RoleTaxEngine},
	CapRead:           AllRoles(),
	CapAITranslate:    AllRoles(),
	CapAdmin:          {RoleInternalOps},
}

// Allowed reports whether a role may exercise a capability.
func Allowed(capability Capability, role Role) bool {
	for _, allowed := range policy[capability] {
		if allowed == role {
			return true
		}
	}
	return false
}
