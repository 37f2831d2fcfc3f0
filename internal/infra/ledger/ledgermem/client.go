package ledgermem

import (
	"context"

	"certichain/internal/domain"
	"certichain/internal/infra/ledger"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
)

// Client is one account's connection to a Ledger.
type Client struct {
	ledger *Ledger
	caller common.Address
}

func (c *Client) Account() (common.Address, bool) {
	return c.caller, c.caller != (common.Address{})
}

func (c *Client) Ledger() *Ledger {
	return c.ledger
}

func (c *Client) IssueCertificate(ctx context.Context, sub domain.IssueSubmission) (domain.IssueReceipt, error) {
	const op = "issueCertificate"
	if err := c.write(ctx, op); err != nil {
		return domain.IssueReceipt{}, err
	}
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.isAuthorized(c.caller) {
		return domain.IssueReceipt{}, revert(op, ledger.RevertNotAuthorized)
	}
	if l.byCommitment[sub.Commitment] != 0 {
		return domain.IssueReceipt{}, revert(op, ledger.RevertDuplicate)
	}
	id := uint64(len(l.records))
	l.records = append(l.records, domain.Record{
		ID:               id,
		Issuer:           c.caller,
		NameFingerprint:  sub.NameFingerprint,
		EmailFingerprint: sub.EmailFingerprint,
		Course:           sub.Course,
		IssueDate:        uint64(l.clock().Unix()),
		EnrollmentDate:   sub.EnrollmentDate,
		Valid:            true,
		ContentPointer:   sub.ContentPointer,
	})
	l.holders[id] = sub.Subject
	l.byCommitment[sub.Commitment] = id
	receipt := l.mine(domain.LedgerEvent{
		Kind:       domain.EventCertificateIssued,
		RecordID:   id,
		Issuer:     c.caller,
		Subject:    sub.Subject,
		Commitment: sub.Commitment,
	})
	return domain.IssueReceipt{TxReceipt: receipt, RecordID: id}, nil
}

func (c *Client) RevokeCertificate(ctx context.Context, recordID uint64, reason string) (domain.TxReceipt, error) {
	const op = "revokeCertificate"
	if err := c.write(ctx, op); err != nil {
		return domain.TxReceipt{}, err
	}
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.record(recordID)
	if !ok || rec.Issuer != c.caller {
		return domain.TxReceipt{}, revert(op, ledger.RevertNotIssuer)
	}
	if !rec.Valid {
		return domain.TxReceipt{}, revert(op, ledger.RevertAlreadyRevoked)
	}
	rec.Valid = false
	rec.RevokeReason = reason
	l.records[recordID] = rec
	return l.mine(domain.LedgerEvent{
		Kind:     domain.EventCertificateRevoked,
		RecordID: recordID,
		Reason:   reason,
	}), nil
}

func (c *Client) GetCertificate(ctx context.Context, recordID uint64) (domain.Record, error) {
	if err := c.ledger.enter(ctx, "getCertificate"); err != nil {
		return domain.Record{}, err
	}
	c.ledger.mu.RLock()
	defer c.ledger.mu.RUnlock()
	rec, _ := c.ledger.record(recordID)
	return rec, nil
}

func (c *Client) GetCertificateByCommitment(ctx context.Context, commit commitment.Digest) (uint64, error) {
	if err := c.ledger.enter(ctx, "getCertificateByHash"); err != nil {
		return 0, err
	}
	c.ledger.mu.RLock()
	defer c.ledger.mu.RUnlock()
	return c.ledger.byCommitment[commit], nil
}

func (c *Client) IsAuthorizedInstitution(ctx context.Context, institution common.Address) (bool, error) {
	if err := c.ledger.enter(ctx, "isAuthorized"); err != nil {
		return false, err
	}
	c.ledger.mu.RLock()
	defer c.ledger.mu.RUnlock()
	return c.ledger.isAuthorized(institution), nil
}

func (c *Client) GetInstitution(ctx context.Context, institution common.Address) (domain.Institution, error) {
	if err := c.ledger.enter(ctx, "getInstitution"); err != nil {
		return domain.Institution{}, err
	}
	c.ledger.mu.RLock()
	defer c.ledger.mu.RUnlock()
	out := domain.Institution{Address: institution}
	if inst, ok := c.ledger.institutions[institution]; ok {
		out.Name = inst.name
		out.Authorized = inst.active
	}
	return out, nil
}

func (c *Client) GetOwner(ctx context.Context) (common.Address, error) {
	if err := c.ledger.enter(ctx, "owner"); err != nil {
		return common.Address{}, err
	}
	return c.ledger.Owner(), nil
}

func (c *Client) GetAllInstitutions(ctx context.Context) ([]common.Address, error) {
	if err := c.ledger.enter(ctx, "getAllInstitutions"); err != nil {
		return nil, err
	}
	c.ledger.mu.RLock()
	defer c.ledger.mu.RUnlock()
	out := make([]common.Address, len(c.ledger.order))
	copy(out, c.ledger.order)
	return out, nil
}

func (c *Client) RegisterInstitution(ctx context.Context, institution common.Address, name string) (domain.TxReceipt, error) {
	const op = "registerInstitution"
	if err := c.write(ctx, op); err != nil {
		return domain.TxReceipt{}, err
	}
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	if c.caller != l.owner {
		return domain.TxReceipt{}, revert(op, ledger.RevertOwnableNotOwner)
	}
	if institution == (common.Address{}) {
		return domain.TxReceipt{}, revert(op, ledger.RevertInvalidAddress)
	}
	inst, known := l.institutions[institution]
	if known && inst.active {
		return domain.TxReceipt{}, revert(op, ledger.RevertAlreadyActive)
	}
	if !known {
		inst = &member{}
		l.institutions[institution] = inst
		l.order = append(l.order, institution)
	}
	inst.name = name
	inst.active = true
	return l.mine(domain.LedgerEvent{
		Kind:            domain.EventInstitutionRegistered,
		Institution:     institution,
		InstitutionName: name,
	}), nil
}

func (c *Client) RemoveInstitution(ctx context.Context, institution common.Address) (domain.TxReceipt, error) {
	const op = "removeInstitution"
	if err := c.write(ctx, op); err != nil {
		return domain.TxReceipt{}, err
	}
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	if c.caller != l.owner {
		return domain.TxReceipt{}, revert(op, ledger.RevertOwnableNotOwner)
	}
	if !l.isAuthorized(institution) {
		return domain.TxReceipt{}, revert(op, ledger.RevertNotRegistered)
	}
	l.institutions[institution].active = false
	return l.mine(domain.LedgerEvent{
		Kind:        domain.EventInstitutionRemoved,
		Institution: institution,
	}), nil
}

func (c *Client) write(ctx context.Context, op string) error {
	if c.caller == (common.Address{}) {
		return domain.ErrReadOnly
	}
	return c.ledger.enter(ctx, op)
}
