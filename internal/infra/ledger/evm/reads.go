package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"certichain/internal/domain"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// certificateTuple matches the getCertificate return struct.
type certificateTuple struct {
	Issuer           common.Address
	StudentNameHash  [32]byte
	StudentEmailHash [32]byte
	Course           string
	IssueDate        *big.Int
	EnrollmentDate   *big.Int
	IsValid          bool
	IpfsHash         string
	RevokeReason     string
}

func (c *Client) call(ctx context.Context, contract *bind.BoundContract, method string, args ...any) ([]any, error) {
	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, classify(method, err)
	}
	return out, nil
}

func (c *Client) GetCertificate(ctx context.Context, recordID uint64) (domain.Record, error) {
	out, err := c.call(ctx, c.certificates, "getCertificate", new(big.Int).SetUint64(recordID))
	if err != nil {
		return domain.Record{}, err
	}
	if len(out) != 1 {
		return domain.Record{}, fmt.Errorf("getCertificate: unexpected %d outputs", len(out))
	}
	tuple := *abi.ConvertType(out[0], new(certificateTuple)).(*certificateTuple)
	issueDate, err := toUint64("issueDate", tuple.IssueDate)
	if err != nil {
		return domain.Record{}, err
	}
	enrollment, err := toUint64("enrollmentDate", tuple.EnrollmentDate)
	if err != nil {
		return domain.Record{}, err
	}
	record := domain.Record{
		ID:               recordID,
		Issuer:           tuple.Issuer,
		NameFingerprint:  commitment.Digest(tuple.StudentNameHash),
		EmailFingerprint: commitment.Digest(tuple.StudentEmailHash),
		Course:           tuple.Course,
		IssueDate:        issueDate,
		EnrollmentDate:   enrollment,
		Valid:            tuple.IsValid,
		RevokeReason:     tuple.RevokeReason,
		ContentPointer:   tuple.IpfsHash,
	}
	if !record.Exists() {
		return domain.Record{}, nil
	}
	return record, nil
}

// GetCertificateByCommitment returns 0 for unknown commitments. The contract
// reverts in that case instead of returning the sentinel.
func (c *Client) GetCertificateByCommitment(ctx context.Context, commit commitment.Digest) (uint64, error) {
	out, err := c.call(ctx, c.certificates, "getCertificateByHash", [32]byte(commit))
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, err := toUint64("getCertificateByHash", *abi.ConvertType(out[0], new(*big.Int)).(**big.Int))
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (c *Client) IsAuthorizedInstitution(ctx context.Context, institution common.Address) (bool, error) {
	out, err := c.call(ctx, c.registry, "isAuthorized", institution)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (c *Client) GetInstitution(ctx context.Context, institution common.Address) (domain.Institution, error) {
	out, err := c.call(ctx, c.registry, "getInstitution", institution)
	if err != nil {
		return domain.Institution{}, err
	}
	if len(out) != 2 {
		return domain.Institution{}, fmt.Errorf("getInstitution: unexpected %d outputs", len(out))
	}
	return domain.Institution{
		Address:    institution,
		Name:       *abi.ConvertType(out[0], new(string)).(*string),
		Authorized: *abi.ConvertType(out[1], new(bool)).(*bool),
	}, nil
}

func (c *Client) GetOwner(ctx context.Context) (common.Address, error) {
	out, err := c.call(ctx, c.registry, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (c *Client) GetAllInstitutions(ctx context.Context) ([]common.Address, error) {
	out, err := c.call(ctx, c.registry, "getAllInstitutions")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}

func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	n, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, classify("blockNumber", err)
	}
	return n, nil
}

func toUint64(field string, v *big.Int) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s out of range: %s", field, v)
	}
	return v.Uint64(), nil
}
