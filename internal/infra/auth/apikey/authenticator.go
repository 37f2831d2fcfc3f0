// Package apikey authenticates callers by static API keys from configuration.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"certichain/internal/domain"
)

type Authenticator struct {
	keys []credential
}

type credential struct {
	digest    [32]byte
	principal domain.Principal
}

// New maps the admin and issuer keys to principals. Empty keys are ignored.
func New(adminKey, issuerKey string) *Authenticator {
	a := &Authenticator{}
	a.add(adminKey, domain.RoleAdmin)
	a.add(issuerKey, domain.RoleIssuer)
	return a
}

func (a *Authenticator) add(key, role string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	digest := sha256.Sum256([]byte(key))
	a.keys = append(a.keys, credential{
		digest: digest,
		principal: domain.Principal{
			Subject: role + ":" + hex.EncodeToString(digest[:4]),
			Roles:   []string{role},
		},
	})
}

func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.keys) > 0
}

func (a *Authenticator) Authenticate(_ context.Context, credential string) (domain.Principal, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" || a == nil {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	digest := sha256.Sum256([]byte(credential))
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare(digest[:], k.digest[:]) == 1 {
			return k.principal, nil
		}
	}
	return domain.Principal{}, domain.ErrUnauthorized
}

var _ domain.Authenticator = (*Authenticator)(nil)
