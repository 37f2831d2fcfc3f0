package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"certichain/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// InstitutionDirectory is the administrative view of the registry.
type InstitutionDirectory struct {
	Registry InstitutionRegistry
	Timeout  time.Duration
	Observer Observer
	Log      *logrus.Entry
}

func NewInstitutionDirectory(registry InstitutionRegistry, timeout time.Duration) *InstitutionDirectory {
	return &InstitutionDirectory{Registry: registry, Timeout: timeout}
}

func (d *InstitutionDirectory) Owner(ctx context.Context) (common.Address, error) {
	if err := d.validate(); err != nil {
		return common.Address{}, err
	}
	return callLedger(ctx, d.Timeout, d.Observer, "owner", d.Registry.GetOwner)
}

func (d *InstitutionDirectory) Status(ctx context.Context, institution common.Address) (domain.Institution, error) {
	if err := d.validate(); err != nil {
		return domain.Institution{}, err
	}
	inst, err := callLedger(ctx, d.Timeout, d.Observer, "getInstitution", func(ctx context.Context) (domain.Institution, error) {
		return d.Registry.GetInstitution(ctx, institution)
	})
	if err != nil {
		return domain.Institution{}, err
	}
	inst.Address = institution
	return inst, nil
}

// List returns every institution ever registered, in registration order,
// with its current name and authorization.
func (d *InstitutionDirectory) List(ctx context.Context) ([]domain.Institution, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	addrs, err := callLedger(ctx, d.Timeout, d.Observer, "getAllInstitutions", d.Registry.GetAllInstitutions)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Institution, len(addrs))
	for i, addr := range addrs {
		inst, err := d.Status(ctx, addr)
		if err != nil {
			return nil, err
		}
		out[i] = inst
	}
	return out, nil
}

func (d *InstitutionDirectory) Register(ctx context.Context, institution common.Address, name string) (domain.TxReceipt, error) {
	if err := d.validate(); err != nil {
		return domain.TxReceipt{}, err
	}
	name = strings.TrimSpace(name)
	if institution == (common.Address{}) {
		return domain.TxReceipt{}, domain.InputError("institution address must not be zero")
	}
	if name == "" {
		return domain.TxReceipt{}, domain.InputError("institution name is required")
	}
	receipt, err := d.Registry.RegisterInstitution(ctx, institution, name)
	if err != nil {
		return domain.TxReceipt{}, err
	}
	logOrDiscard(d.Log).WithField("institution", institution.Hex()).WithField("tx_hash", receipt.TxHash).Info("institution registered")
	return receipt, nil
}

func (d *InstitutionDirectory) Remove(ctx context.Context, institution common.Address) (domain.TxReceipt, error) {
	if err := d.validate(); err != nil {
		return domain.TxReceipt{}, err
	}
	if institution == (common.Address{}) {
		return domain.TxReceipt{}, domain.InputError("institution address must not be zero")
	}
	receipt, err := d.Registry.RemoveInstitution(ctx, institution)
	if err != nil {
		return domain.TxReceipt{}, err
	}
	logOrDiscard(d.Log).WithField("institution", institution.Hex()).WithField("tx_hash", receipt.TxHash).Info("institution removed")
	return receipt, nil
}

func (d *InstitutionDirectory) validate() error {
	if d == nil || d.Registry == nil {
		return errors.New("institution registry is required")
	}
	return nil
}

// ParseAddress accepts a 0x-prefixed 20-byte hex address.
func ParseAddress(value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}, domain.InputError("%q is not an address", value)
	}
	return common.HexToAddress(value), nil
}
