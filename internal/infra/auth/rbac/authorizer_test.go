package rbac

import (
	"errors"
	"testing"

	"certichain/internal/domain"
)

func TestRequire(t *testing.T) {
	a := NewAuthorizer()
	issuer := domain.Principal{Subject: "issuer:1", Roles: []string{domain.RoleIssuer}}
	admin := domain.Principal{Subject: "admin:1", Roles: []string{domain.RoleAdmin}}

	if err := a.Require(issuer, PermissionIssue); err != nil {
		t.Fatalf("expected issuer to issue, got %v", err)
	}
	err := a.Require(issuer, PermissionInstitutionWrite)
	if authz, ok := IsAuthzError(err); !ok || authz.Code != "MISSING_ROLE" || !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected missing role, got %v", err)
	}
	if err := a.Require(admin, PermissionInstitutionWrite); err != nil {
		t.Fatalf("expected admin to be allowed, got %v", err)
	}
	if err := a.Require(domain.Principal{}, PermissionIssue); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected anonymous principal to be unauthorized, got %v", err)
	}
}
