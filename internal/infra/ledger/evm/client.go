// Package evm talks to the registry and certificate contracts on an
// EVM-compatible chain through go-ethereum.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"certichain/internal/usecase"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

const (
	DefaultFinalityTimeout = 2 * time.Minute
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxBlockRange   = 2000
)

// Backend is the subset of *ethclient.Client the adapter needs.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

type Config struct {
	RPCURL             string
	ChainID            int64
	RegistryAddress    common.Address
	CertificateAddress common.Address
	// PrivateKeyHex enables writes. Without it the client is read-only.
	PrivateKeyHex   string
	FinalityTimeout time.Duration
	PollInterval    time.Duration
	MaxBlockRange   uint64
	Log             *logrus.Entry
}

type Client struct {
	backend      Backend
	registry     *bind.BoundContract
	certificates *bind.BoundContract
	registryAddr common.Address
	certAddr     common.Address

	signer *bind.TransactOpts
	from   common.Address
	// writes share one account nonce sequence
	writeMu sync.Mutex

	finalityTimeout time.Duration
	pollInterval    time.Duration
	maxBlockRange   uint64
	log             *logrus.Entry
	closer          func()
}

// Dial connects to cfg.RPCURL and checks that it serves cfg.ChainID.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("rpc url is required")
	}
	rpc, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}
	client, err := New(ctx, rpc, cfg)
	if err != nil {
		rpc.Close()
		return nil, err
	}
	client.closer = rpc.Close
	return client, nil
}

func New(ctx context.Context, backend Backend, cfg Config) (*Client, error) {
	if backend == nil {
		return nil, errors.New("evm backend is required")
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if cfg.ChainID != 0 && chainID.Cmp(big.NewInt(cfg.ChainID)) != 0 {
		return nil, fmt.Errorf("rpc serves chain %s, expected %d", chainID, cfg.ChainID)
	}
	c := newClient(backend, cfg)
	if cfg.PrivateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKeyHex), "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse issuer private key: %w", err)
		}
		opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
		if err != nil {
			return nil, err
		}
		c.signer = opts
		c.from = opts.From
	}
	c.log.WithFields(logrus.Fields{
		"chain_id":    chainID.String(),
		"registry":    c.registryAddr.Hex(),
		"certificate": c.certAddr.Hex(),
		"signer":      c.from.Hex(),
	}).Info("ledger client ready")
	return c, nil
}

func newClient(backend Backend, cfg Config) *Client {
	c := &Client{
		backend:         backend,
		registryAddr:    cfg.RegistryAddress,
		certAddr:        cfg.CertificateAddress,
		finalityTimeout: cfg.FinalityTimeout,
		pollInterval:    cfg.PollInterval,
		maxBlockRange:   cfg.MaxBlockRange,
		log:             cfg.Log,
	}
	if c.finalityTimeout <= 0 {
		c.finalityTimeout = DefaultFinalityTimeout
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.maxBlockRange == 0 {
		c.maxBlockRange = DefaultMaxBlockRange
	}
	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	c.log = c.log.WithField("component", "ledger.evm")
	c.registry = bind.NewBoundContract(cfg.RegistryAddress, registryABI, backend, backend, backend)
	c.certificates = bind.NewBoundContract(cfg.CertificateAddress, certificateABI, backend, backend, backend)
	return c
}

func (c *Client) Account() (common.Address, bool) {
	return c.from, c.signer != nil
}

func (c *Client) Close() {
	if c != nil && c.closer != nil {
		c.closer()
	}
}

var (
	_ usecase.CertificateLedger   = (*Client)(nil)
	_ usecase.InstitutionRegistry = (*Client)(nil)
	_ usecase.EventSource         = (*Client)(nil)
	_ usecase.Account             = (*Client)(nil)
)
