package domain

import (
	"encoding/json"
	"time"
)

type VerdictStatus string

const (
	VerdictValid               VerdictStatus = "valid"
	VerdictValidIssuerInactive VerdictStatus = "valid_issuer_inactive"
	VerdictRevoked             VerdictStatus = "revoked"
	VerdictNotFound            VerdictStatus = "not_found"
	VerdictTransient           VerdictStatus = "transient"
)

type VerificationStage string

const (
	StageIdle                VerificationStage = "idle"
	StageComputingCommitment VerificationStage = "computing_commitment"
	StageResolvingID         VerificationStage = "resolving_id"
	StageFetchingByID        VerificationStage = "fetching_by_id"
	StageEvaluatingTrust     VerificationStage = "evaluating_trust"
	StageDone                VerificationStage = "done"
	StageFailed              VerificationStage = "failed"
)

const (
	MessageNoDataMatch     = "no certificate found for the supplied data"
	MessageNotFoundOnChain = "certificate not found on ledger"
	MessageTransient       = "ledger unavailable, try again"
	MessageIssuerInactive  = "issuing institution is no longer authorized"
)

type VerificationPath string

const (
	PathByID   VerificationPath = "id"
	PathByData VerificationPath = "data"
)

type Verdict struct {
	Status           VerdictStatus     `json:"status"`
	Path             VerificationPath  `json:"path"`
	Stage            VerificationStage `json:"stage"`
	Message          string            `json:"message,omitempty"`
	RecordID         *uint64           `json:"record_id,omitempty"`
	Record           *Record           `json:"record,omitempty"`
	IssuerAuthorized *bool             `json:"issuer_authorized,omitempty"`
	Metadata         json.RawMessage   `json:"metadata,omitempty"`
	CheckedAt        time.Time         `json:"checked_at"`
}

func (v Verdict) Trusted() bool {
	return v.Status == VerdictValid
}

func (v Verdict) Found() bool {
	switch v.Status {
	case VerdictValid, VerdictValidIssuerInactive, VerdictRevoked:
		return true
	}
	return false
}
