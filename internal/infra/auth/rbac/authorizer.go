package rbac

import (
	"errors"

	"certichain/internal/domain"
)

const (
	PermissionIssue            = "certificates:issue"
	PermissionRevoke           = "certificates:revoke"
	PermissionInstitutionWrite = "institutions:write"
	PermissionJournalRead      = "issuances:read"
)

type AuthzError struct {
	Code string
	Err  error
}

func (e *AuthzError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *AuthzError) Unwrap() error {
	return e.Err
}

// Authorizer grants permissions by role. Admins hold every permission.
type Authorizer struct {
	grants map[string][]string
}

func NewAuthorizer() *Authorizer {
	return &Authorizer{
		grants: map[string][]string{
			domain.RoleIssuer: {PermissionIssue, PermissionRevoke, PermissionJournalRead},
		},
	}
}

func (a *Authorizer) Require(principal domain.Principal, permission string) error {
	if principal.Subject == "" {
		return domain.ErrUnauthorized
	}
	if permission == "" || principal.HasRole(domain.RoleAdmin) {
		return nil
	}
	for _, role := range principal.Roles {
		for _, granted := range a.grants[role] {
			if granted == permission {
				return nil
			}
		}
	}
	return &AuthzError{Code: "MISSING_ROLE", Err: domain.ErrForbidden}
}

func IsAuthzError(err error) (*AuthzError, bool) {
	var authz *AuthzError
	if errors.As(err, &authz) {
		return authz, true
	}
	return nil, false
}
