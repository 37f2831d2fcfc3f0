// Package app assembles the ledger adapter, stores and usecases from a
// Config. The daemon and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"certichain/internal/config"
	"certichain/internal/domain"
	"certichain/internal/infra/auth/apikey"
	"certichain/internal/infra/db"
	"certichain/internal/infra/historymem"
	httpinfra "certichain/internal/infra/http"
	"certichain/internal/infra/ledger/evm"
	"certichain/internal/infra/ledger/ledgermem"
	"certichain/internal/infra/logging"
	"certichain/internal/infra/metadata"
	"certichain/internal/infra/metrics"
	"certichain/internal/infra/policyopa"
	"certichain/internal/infra/ratelimit"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// DefaultMemoryOwner owns the in-memory ledger when MEMORY_LEDGER_OWNER is
// unset.
const DefaultMemoryOwner = "0x00000000000000000000000000000000000c0de1"

const memoryInstitutionName = "Local Development Institution"

// Ledger is what both ledger adapters provide.
type Ledger interface {
	usecase.CertificateLedger
	usecase.InstitutionRegistry
	usecase.EventSource
	usecase.Account
}

type App struct {
	Config  config.Config
	Logger  *logrus.Logger
	Engine  *commitment.Engine
	Ledger  Ledger
	Metrics *metrics.Metrics

	Verify       *usecase.VerifyCertificate
	Issue        *usecase.IssueCertificate
	Revoke       *usecase.RevokeCertificate
	Institutions *usecase.InstitutionDirectory
	History      *usecase.HistoryQuery
	Indexer      *usecase.HistoryIndexer
	Issuances    usecase.IssuanceLog

	Authenticator *apikey.Authenticator
	RateLimiter   domain.RateLimiter
	StoreMode     string

	closers []func()
}

type Options struct {
	// SkipPolicy leaves issuance unguarded by the OPA policy. Only the CLI
	// sets it, for commands that never issue.
	SkipPolicy bool
	// SkipStore keeps history and the issuance journal in memory even when
	// POSTGRES_DSN is set.
	SkipStore bool
}

func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	return NewWithOptions(ctx, cfg, logger, Options{})
}

func NewWithOptions(ctx context.Context, cfg config.Config, logger *logrus.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}

	scheme, err := commitment.ParseScheme(cfg.CommitmentScheme)
	if err != nil {
		return nil, err
	}
	if a.Engine, err = commitment.NewEngine(scheme); err != nil {
		return nil, err
	}

	if err := a.initLedger(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initStore(opts); err != nil {
		a.Close()
		return nil, err
	}

	timeout := cfg.LedgerTimeout()
	fetcher := a.metadataFetcher()

	a.Verify = usecase.NewVerifyCertificate(a.Engine, a.Ledger, a.Ledger, timeout)
	a.Verify.Metadata = fetcher
	a.Verify.MetadataTimeout = cfg.MetadataTimeout()
	a.Verify.Observer = a.Metrics
	a.Verify.Registry.Observer = a.Metrics
	a.Verify.Log = logging.Component(logger, "verify")

	a.Issue = usecase.NewIssueCertificate(a.Engine, a.Ledger, a.Ledger)
	a.Issue.Journal = a.Issuances
	a.Issue.ValidatePointer = metadata.ValidatePointer
	a.Issue.Timeout = timeout
	a.Issue.Observer = a.Metrics
	a.Issue.Log = logging.Component(logger, "issue")
	if !opts.SkipPolicy {
		policy, err := loadPolicy(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Issue.Policy = policy
	}

	a.Revoke = usecase.NewRevokeCertificate(a.Ledger, timeout)
	a.Revoke.Observer = a.Metrics
	a.Revoke.Log = logging.Component(logger, "revoke")

	a.Institutions = usecase.NewInstitutionDirectory(a.Ledger, timeout)
	a.Institutions.Observer = a.Metrics
	a.Institutions.Log = logging.Component(logger, "institutions")

	if cfg.HistoryFromBlock < 0 {
		a.Close()
		return nil, errors.New("HISTORY_FROM_BLOCK must not be negative")
	}
	a.Indexer.FromBlock = uint64(cfg.HistoryFromBlock)

	a.Authenticator = apikey.New(cfg.AdminAPIKey, cfg.IssuerAPIKey)
	return a, nil
}

func (a *App) initLedger(ctx context.Context) error {
	cfg := a.Config
	switch cfg.LedgerMode {
	case config.LedgerModeMemory:
		ownerHex := cfg.MemoryLedgerOwner
		if ownerHex == "" {
			ownerHex = DefaultMemoryOwner
		}
		if !common.IsHexAddress(ownerHex) {
			return fmt.Errorf("MEMORY_LEDGER_OWNER %q is not an address", ownerHex)
		}
		owner := common.HexToAddress(ownerHex)
		client := ledgermem.New(owner).Client(owner)
		// the owner doubles as an authorized institution so a fresh memory
		// ledger can issue straight away
		if _, err := client.RegisterInstitution(ctx, owner, memoryInstitutionName); err != nil {
			return fmt.Errorf("seed memory ledger: %w", err)
		}
		a.Ledger = client
		a.Logger.WithField("owner", owner.Hex()).Warn("using in-memory ledger; records are lost on exit")
		return nil
	case config.LedgerModeEVM, "":
		client, err := evm.Dial(ctx, evm.Config{
			RPCURL:             cfg.RPCURL,
			ChainID:            cfg.ChainID,
			RegistryAddress:    common.HexToAddress(cfg.RegistryAddress),
			CertificateAddress: common.HexToAddress(cfg.CertificateAddress),
			PrivateKeyHex:      strings.TrimPrefix(cfg.IssuerPrivateKeyHex, "0x"),
			FinalityTimeout:    cfg.FinalityTimeout(),
			PollInterval:       cfg.PollInterval(),
			Log:                logging.Component(a.Logger, "ledger"),
		})
		if err != nil {
			return err
		}
		a.Ledger = client
		a.closers = append(a.closers, client.Close)
		return nil
	default:
		return fmt.Errorf("unsupported ledger mode %q", cfg.LedgerMode)
	}
}

func (a *App) initStore(opts Options) error {
	var history usecase.HistoryStore
	if !opts.SkipStore {
		store, err := db.NewStore(a.Config, logging.Component(a.Logger, "store"))
		if err != nil {
			return err
		}
		if store.Enabled() {
			history = store.History
			a.Issuances = store.Journal
			a.StoreMode = "db"
			if sqlDB, err := store.DB.DB(); err == nil {
				a.closers = append(a.closers, func() { _ = sqlDB.Close() })
			}
		}
	}
	if history == nil {
		mem := historymem.New()
		history = mem
		a.Issuances = mem.Journal()
		a.StoreMode = "memory"
	}
	a.History = &usecase.HistoryQuery{Store: history}
	a.Indexer = usecase.NewHistoryIndexer(a.Ledger, history, 0)
	a.Indexer.Observer = a.Metrics
	a.Indexer.Log = logging.Component(a.Logger, "history")
	return nil
}

func (a *App) metadataFetcher() usecase.MetadataFetcher {
	if a.Config.MetadataGatewayURL == "" {
		return nil
	}
	gw := metadata.NewGateway(a.Config.MetadataGatewayURL, a.Config.MetadataTimeout())
	if a.Config.MetadataMaxBytes > 0 {
		gw.MaxBytes = int64(a.Config.MetadataMaxBytes)
	}
	if a.Config.MetadataCacheTTLSeconds <= 0 {
		return gw
	}
	return metadata.NewCache(gw, a.Config.MetadataCacheTTL())
}

func loadPolicy(ctx context.Context, cfg config.Config) (*policyopa.Engine, error) {
	if cfg.IssuancePolicyPath == "" {
		return policyopa.NewDefaultEngine(ctx)
	}
	engine, err := policyopa.NewEngineFromBundlePath(ctx, cfg.IssuancePolicyPath, filepath.Base(cfg.IssuancePolicyPath))
	if err != nil {
		return nil, fmt.Errorf("load issuance policy %s: %w", cfg.IssuancePolicyPath, err)
	}
	return engine, nil
}

// NewRateLimiter picks Redis when REDIS_ADDR is set and an in-process
// limiter otherwise. It returns nil when rate limiting is disabled.
func (a *App) NewRateLimiter(ctx context.Context) (domain.RateLimiter, error) {
	cfg := a.Config
	if cfg.RateLimitRequests <= 0 {
		return nil, nil
	}
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter(ratelimit.MemoryConfig{MaxKeys: cfg.RateLimitMaxKeys}), nil
	}
	limiter, err := ratelimit.NewRedisLimiter(ctx, ratelimit.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   "certichain:ratelimit:",
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = limiter.Close() })
	return limiter, nil
}

// Server builds the HTTP server. Rate limiting is set up on first use.
func (a *App) Server(ctx context.Context) (*httpinfra.Server, error) {
	if a.RateLimiter == nil {
		limiter, err := a.NewRateLimiter(ctx)
		if err != nil {
			return nil, err
		}
		a.RateLimiter = limiter
	}
	var authn domain.Authenticator
	if a.Authenticator.Enabled() {
		authn = a.Authenticator
	}
	return httpinfra.NewServer(a.Config, httpinfra.ServerDeps{
		Verify:        a.Verify,
		Issue:         a.Issue,
		Revoke:        a.Revoke,
		Institutions:  a.Institutions,
		History:       a.History,
		Issuances:     a.Issuances,
		Engine:        a.Engine,
		Metrics:       a.Metrics.Handler(),
		Authenticator: authn,
		RateLimiter:   a.RateLimiter,
		Log:           logging.Component(a.Logger, "http"),
		StoreMode:     a.StoreMode,
	}), nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

var ErrNoSigner = errors.New("ledger client has no signing account; set ISSUER_PRIVATE_KEY_HEX")

// Signer returns the account writes are sent from.
func (a *App) Signer() (common.Address, error) {
	addr, ok := a.Ledger.Account()
	if !ok {
		return common.Address{}, ErrNoSigner
	}
	return addr, nil
}
