package evm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"certichain/internal/domain"
	"certichain/internal/infra/ledger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

const executionReverted = "execution reverted"

// selector of OwnableUnauthorizedAccount(address)
var ownableUnauthorizedSelector = []byte{0x11, 0x8c, 0xda, 0xa7}

// revertReason extracts the contract's revert string from an RPC error.
// ok is false when err is not a revert.
func revertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if raw, ok := dataErr.ErrorData().(string); ok {
			if data, decodeErr := hexutil.Decode(raw); decodeErr == nil {
				if reason, ok := decodeRevertData(data); ok {
					return reason, true
				}
			}
		}
	}
	msg := err.Error()
	idx := strings.Index(msg, executionReverted)
	if idx < 0 {
		return "", false
	}
	reason := strings.TrimSpace(strings.TrimPrefix(msg[idx+len(executionReverted):], ":"))
	return reason, true
}

func decodeRevertData(data []byte) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	if bytes.Equal(data[:4], ownableUnauthorizedSelector) {
		return "OwnableUnauthorizedAccount", true
	}
	reason, err := abi.UnpackRevert(data)
	if err != nil {
		return "", false
	}
	return reason, true
}

// classify maps a failed call or transaction onto a domain.LedgerError.
// Context errors pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if reason, ok := revertReason(err); ok {
		return ledger.Reject(op, reason, err)
	}
	if isTransport(err) {
		return &domain.LedgerError{Op: op, Kind: domain.ErrTransient, Err: err}
	}
	return &domain.LedgerError{Op: op, Kind: domain.ErrLedgerRejected, Reason: err.Error(), Err: err}
}

func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}
	return false
}
