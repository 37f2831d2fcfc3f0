package domain

import "context"

const (
	RoleAdmin  = "admin"
	RoleIssuer = "issuer"
)

type Principal struct {
	Subject string
	Roles   []string
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (Principal, error)
}
