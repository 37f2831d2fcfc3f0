package evm

import (
	"context"
	"fmt"
	"math/big"

	"certichain/internal/domain"
	"certichain/internal/infra/ledger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

func (c *Client) IssueCertificate(ctx context.Context, sub domain.IssueSubmission) (domain.IssueReceipt, error) {
	receipt, err := c.transact(ctx, c.certificates, "issueCertificate",
		sub.Subject,
		[32]byte(sub.NameFingerprint),
		[32]byte(sub.EmailFingerprint),
		sub.Course,
		new(big.Int).SetUint64(sub.EnrollmentDate),
		sub.ContentPointer,
		[32]byte(sub.Commitment),
	)
	if err != nil {
		return domain.IssueReceipt{}, err
	}
	out := domain.IssueReceipt{TxReceipt: txReceipt(receipt)}
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != c.certAddr {
			continue
		}
		event, ok, err := c.decodeLog(*lg)
		if err != nil || !ok || event.Kind != domain.EventCertificateIssued {
			continue
		}
		out.RecordID = event.RecordID
		return out, nil
	}
	return out, &domain.LedgerError{
		Op:     "issueCertificate",
		Kind:   domain.ErrLedgerRejected,
		Reason: fmt.Sprintf("no CertificateIssued event in %s", out.TxHash),
	}
}

func (c *Client) RevokeCertificate(ctx context.Context, recordID uint64, reason string) (domain.TxReceipt, error) {
	receipt, err := c.transact(ctx, c.certificates, "revokeCertificate", new(big.Int).SetUint64(recordID), reason)
	if err != nil {
		return domain.TxReceipt{}, err
	}
	return txReceipt(receipt), nil
}

func (c *Client) RegisterInstitution(ctx context.Context, institution common.Address, name string) (domain.TxReceipt, error) {
	receipt, err := c.transact(ctx, c.registry, "registerInstitution", institution, name)
	if err != nil {
		return domain.TxReceipt{}, err
	}
	return txReceipt(receipt), nil
}

func (c *Client) RemoveInstitution(ctx context.Context, institution common.Address) (domain.TxReceipt, error) {
	receipt, err := c.transact(ctx, c.registry, "removeInstitution", institution)
	if err != nil {
		return domain.TxReceipt{}, err
	}
	return txReceipt(receipt), nil
}

// transact submits a signed call and waits for its receipt. A receipt that
// never arrives within the finality timeout is transient; the write may
// still land.
func (c *Client) transact(ctx context.Context, contract *bind.BoundContract, method string, args ...any) (*types.Receipt, error) {
	if c.signer == nil {
		return nil, domain.ErrReadOnly
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	opts := *c.signer
	opts.Context = ctx
	tx, err := contract.Transact(&opts, method, args...)
	if err != nil {
		return nil, classify(method, err)
	}
	log := c.log.WithFields(logrus.Fields{"method": method, "tx_hash": tx.Hash().Hex()})
	log.Info("transaction submitted")

	waitCtx, cancel := context.WithTimeout(ctx, c.finalityTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.backend, tx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Warn("finality not observed")
		return nil, &domain.LedgerError{
			Op:     method,
			Kind:   domain.ErrTransient,
			Reason: fmt.Sprintf("finality not observed for %s", tx.Hash().Hex()),
			Err:    err,
		}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		reason := c.replayRevert(ctx, tx, receipt.BlockNumber)
		log.WithField("reason", reason).Warn("transaction reverted")
		return nil, ledger.Reject(method, reason, fmt.Errorf("transaction %s reverted", tx.Hash().Hex()))
	}
	log.WithField("block", receipt.BlockNumber).Info("transaction finalized")
	return receipt, nil
}

// replayRevert re-executes a failed transaction at its block to recover the
// revert string, which receipts do not carry.
func (c *Client) replayRevert(ctx context.Context, tx *types.Transaction, block *big.Int) string {
	msg := ethereum.CallMsg{
		From:  c.from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}
	_, err := c.backend.CallContract(ctx, msg, block)
	if err == nil {
		return ""
	}
	reason, _ := revertReason(err)
	return reason
}

func txReceipt(r *types.Receipt) domain.TxReceipt {
	out := domain.TxReceipt{TxHash: r.TxHash.Hex()}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}
