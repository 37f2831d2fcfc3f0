// Package ledger holds what the ledger adapters share: the contracts'
// revert strings and their mapping onto domain errors.
package ledger

import (
	"strings"

	"certichain/internal/domain"
)

const (
	RevertNotAuthorized    = "Auth: Caller is not an authorized institution"
	RevertDuplicate        = "Issue: Certificate with this data hash already exists"
	RevertNotIssuer        = "Revoke: Caller must be the issuer of this certificate"
	RevertAlreadyRevoked   = "Revoke: Certificate is already revoked"
	RevertLookupNotFound   = "Lookup: No certificate found for provided data hash"
	RevertSoulbound        = "Soulbound: Transfers are disabled"
	RevertInvalidAddress   = "Registry: Invalid institution address"
	RevertAlreadyActive    = "Registry: Institution already active"
	RevertNotRegistered    = "Registry: Institution not registered"
	RevertOwnableNotOwner  = "Ownable: caller is not the owner"
	ownableUnauthorizedErr = "OwnableUnauthorizedAccount"
)

// Classify maps a revert reason to a domain sentinel. Unknown reasons are
// plain rejections.
func Classify(reason string) error {
	switch {
	case reason == RevertNotAuthorized:
		return domain.ErrUnauthorized
	case reason == RevertDuplicate:
		return domain.ErrDuplicateCommitment
	case reason == RevertNotIssuer:
		return domain.ErrNotIssuer
	case reason == RevertAlreadyRevoked:
		return domain.ErrAlreadyRevoked
	case reason == RevertLookupNotFound, reason == RevertNotRegistered:
		return domain.ErrNotFound
	case reason == RevertInvalidAddress, reason == RevertAlreadyActive, reason == RevertSoulbound:
		return domain.ErrInputValidation
	case reason == RevertOwnableNotOwner, strings.Contains(reason, ownableUnauthorizedErr):
		return domain.ErrNotOwner
	case strings.HasPrefix(reason, "Auth:"):
		return domain.ErrUnauthorized
	}
	return domain.ErrLedgerRejected
}

// Reject builds the error an adapter returns for a reverted call.
func Reject(op, reason string, cause error) *domain.LedgerError {
	return &domain.LedgerError{Op: op, Kind: Classify(reason), Reason: reason, Err: cause}
}
