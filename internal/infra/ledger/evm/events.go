package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"certichain/internal/domain"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

type certificateIssuedLog struct {
	TokenId  *big.Int
	Issuer   common.Address
	Student  common.Address
	DataHash [32]byte
}

type certificateRevokedLog struct {
	TokenId *big.Int
	Reason  string
}

type institutionRegisteredLog struct {
	Institution common.Address
	Name        string
}

type institutionRemovedLog struct {
	Institution common.Address
}

// decodeLog turns a contract log into a LedgerEvent. ok is false for logs
// the history does not track, such as ERC-721 transfers.
func (c *Client) decodeLog(lg types.Log) (domain.LedgerEvent, bool, error) {
	if len(lg.Topics) == 0 {
		return domain.LedgerEvent{}, false, nil
	}
	event := domain.LedgerEvent{
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash.Hex(),
		LogIndex:    lg.Index,
		ObservedAt:  time.Now().UTC(),
	}
	switch lg.Address {
	case c.certAddr:
		ev, err := certificateABI.EventByID(lg.Topics[0])
		if err != nil {
			return domain.LedgerEvent{}, false, nil
		}
		switch ev.Name {
		case "CertificateIssued":
			var out certificateIssuedLog
			if err := c.certificates.UnpackLog(&out, ev.Name, lg); err != nil {
				return domain.LedgerEvent{}, false, fmt.Errorf("decode %s: %w", ev.Name, err)
			}
			id, err := toUint64("tokenId", out.TokenId)
			if err != nil {
				return domain.LedgerEvent{}, false, err
			}
			event.Kind = domain.EventCertificateIssued
			event.RecordID = id
			event.Issuer = out.Issuer
			event.Subject = out.Student
			event.Commitment = commitment.Digest(out.DataHash)
			return event, true, nil
		case "CertificateRevoked":
			var out certificateRevokedLog
			if err := c.certificates.UnpackLog(&out, ev.Name, lg); err != nil {
				return domain.LedgerEvent{}, false, fmt.Errorf("decode %s: %w", ev.Name, err)
			}
			id, err := toUint64("tokenId", out.TokenId)
			if err != nil {
				return domain.LedgerEvent{}, false, err
			}
			event.Kind = domain.EventCertificateRevoked
			event.RecordID = id
			event.Reason = out.Reason
			return event, true, nil
		}
	case c.registryAddr:
		ev, err := registryABI.EventByID(lg.Topics[0])
		if err != nil {
			return domain.LedgerEvent{}, false, nil
		}
		switch ev.Name {
		case "InstitutionRegistered":
			var out institutionRegisteredLog
			if err := c.registry.UnpackLog(&out, ev.Name, lg); err != nil {
				return domain.LedgerEvent{}, false, fmt.Errorf("decode %s: %w", ev.Name, err)
			}
			event.Kind = domain.EventInstitutionRegistered
			event.Institution = out.Institution
			event.InstitutionName = out.Name
			return event, true, nil
		case "InstitutionRemoved":
			var out institutionRemovedLog
			if err := c.registry.UnpackLog(&out, ev.Name, lg); err != nil {
				return domain.LedgerEvent{}, false, fmt.Errorf("decode %s: %w", ev.Name, err)
			}
			event.Kind = domain.EventInstitutionRemoved
			event.Institution = out.Institution
			return event, true, nil
		}
	}
	return domain.LedgerEvent{}, false, nil
}

type subscription struct {
	events chan domain.LedgerEvent
	errs   chan error
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Events() <-chan domain.LedgerEvent { return s.events }
func (s *subscription) Err() <-chan error                 { return s.errs }

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Subscribe polls both contracts for logs from fromBlock onwards. Public
// RPC endpoints rarely keep filters alive, so logs are fetched with bounded
// eth_getLogs ranges instead of a push subscription.
func (c *Client) Subscribe(ctx context.Context, fromBlock uint64) (usecase.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		events: make(chan domain.LedgerEvent, 64),
		errs:   make(chan error, 1),
		cancel: cancel,
	}
	go c.poll(subCtx, sub, fromBlock)
	return sub, nil
}

func (c *Client) poll(ctx context.Context, sub *subscription, next uint64) {
	defer close(sub.events)
	log := c.log.WithField("subscription", "history")
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		head, err := c.LatestBlock(ctx)
		if err != nil {
			sub.fail(ctx, err)
			return
		}
		for next <= head {
			to := next + c.maxBlockRange - 1
			if to > head {
				to = head
			}
			events, err := c.fetchRange(ctx, next, to)
			if err != nil {
				sub.fail(ctx, err)
				return
			}
			for _, event := range events {
				select {
				case sub.events <- event:
				case <-ctx.Done():
					return
				}
			}
			log.WithFields(logrus.Fields{"from": next, "to": to, "events": len(events)}).Debug("log range scanned")
			next = to + 1
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchRange(ctx context.Context, from, to uint64) ([]domain.LedgerEvent, error) {
	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.registryAddr, c.certAddr},
	})
	if err != nil {
		return nil, classify("getLogs", err)
	}
	out := make([]domain.LedgerEvent, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		event, ok, err := c.decodeLog(lg)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, event)
		}
	}
	return out, nil
}

func (s *subscription) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	select {
	case s.errs <- err:
	default:
	}
}
