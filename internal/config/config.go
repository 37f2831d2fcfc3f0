package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	LedgerModeEVM    = "evm"
	LedgerModeMemory = "memory"
)

// Defaults point at the public Polygon Amoy deployment.
const (
	DefaultChainID            = 80002
	DefaultRPCURL             = "https://rpc-amoy.polygon.technology"
	DefaultRegistryAddress    = "0x36b0FC46a71C29BCae123B3a11a3B5222d7E53b5"
	DefaultCertificateAddress = "0xEDE1ade75d0FBE2Ade2001966966Efd190b90C20"
	DefaultMetadataGateway    = "https://gateway.pinata.cloud/ipfs/"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string
	LogFormat   string
	Env         string

	AdminAPIKey  string
	IssuerAPIKey string

	LedgerMode             string
	RPCURL                 string
	ChainID                int64
	RegistryAddress        string
	CertificateAddress     string
	IssuerPrivateKeyHex    string
	LedgerTimeoutSeconds   int
	FinalityTimeoutSeconds int
	PollIntervalSeconds    int
	MemoryLedgerOwner      string

	CommitmentScheme string

	MetadataGatewayURL      string
	MetadataTimeoutSeconds  int
	MetadataCacheTTLSeconds int
	MetadataMaxBytes        int

	IssuancePolicyPath string

	HistoryEnabled   bool
	HistoryFromBlock int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// FromEnv reads the process environment once. A .env file in the working
// directory is loaded first when present; real environment variables win.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:                envDefault("HTTP_ADDR", ":8080"),
		PostgresDSN:             os.Getenv("POSTGRES_DSN"),
		LogLevel:                envDefault("LOG_LEVEL", "info"),
		LogFormat:               envDefault("LOG_FORMAT", ""),
		Env:                     envDefault("CERTICHAIN_ENV", "development"),
		AdminAPIKey:             os.Getenv("ADMIN_API_KEY"),
		IssuerAPIKey:            os.Getenv("ISSUER_API_KEY"),
		LedgerMode:              strings.ToLower(envDefault("LEDGER_MODE", LedgerModeEVM)),
		RPCURL:                  envDefault("RPC_URL", DefaultRPCURL),
		ChainID:                 int64(envIntDefault("CHAIN_ID", DefaultChainID)),
		RegistryAddress:         envDefault("REGISTRY_ADDRESS", DefaultRegistryAddress),
		CertificateAddress:      envDefault("CERTIFICATE_ADDRESS", DefaultCertificateAddress),
		IssuerPrivateKeyHex:     os.Getenv("ISSUER_PRIVATE_KEY_HEX"),
		LedgerTimeoutSeconds:    envIntDefault("LEDGER_TIMEOUT_SECONDS", 10),
		FinalityTimeoutSeconds:  envIntDefault("FINALITY_TIMEOUT_SECONDS", 120),
		PollIntervalSeconds:     envIntDefault("POLL_INTERVAL_SECONDS", 5),
		MemoryLedgerOwner:       os.Getenv("MEMORY_LEDGER_OWNER"),
		CommitmentScheme:        envDefault("COMMITMENT_SCHEME", "packed"),
		MetadataGatewayURL:      envDefault("METADATA_GATEWAY_URL", DefaultMetadataGateway),
		MetadataTimeoutSeconds:  envIntDefault("METADATA_TIMEOUT_SECONDS", 5),
		MetadataCacheTTLSeconds: envIntDefault("METADATA_CACHE_TTL_SECONDS", 3600),
		MetadataMaxBytes:        envIntDefault("METADATA_MAX_BYTES", 1<<20),
		IssuancePolicyPath:      os.Getenv("ISSUANCE_POLICY_PATH"),
		HistoryEnabled:          envBoolDefault("HISTORY_ENABLED", true),
		HistoryFromBlock:        envIntDefault("HISTORY_FROM_BLOCK", 0),
		RateLimitRequests:       envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:  envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:     envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:        envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) Validate() error {
	var errs []error
	switch c.LedgerMode {
	case LedgerModeMemory:
	case LedgerModeEVM:
		if c.RPCURL == "" {
			errs = append(errs, errors.New("RPC_URL is required for evm ledger mode"))
		}
		if c.ChainID <= 0 {
			errs = append(errs, errors.New("CHAIN_ID must be positive"))
		}
		if !isHexAddress(c.RegistryAddress) {
			errs = append(errs, fmt.Errorf("REGISTRY_ADDRESS %q is not an address", c.RegistryAddress))
		}
		if !isHexAddress(c.CertificateAddress) {
			errs = append(errs, fmt.Errorf("CERTIFICATE_ADDRESS %q is not an address", c.CertificateAddress))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported LEDGER_MODE %q", c.LedgerMode))
	}
	switch strings.ToLower(c.CommitmentScheme) {
	case "", "packed", "length_prefixed":
	default:
		errs = append(errs, fmt.Errorf("unsupported COMMITMENT_SCHEME %q", c.CommitmentScheme))
	}
	return errors.Join(errs...)
}

func (c Config) Production() bool {
	return c.Env == "production"
}

func (c Config) LedgerTimeout() time.Duration {
	return seconds(c.LedgerTimeoutSeconds)
}

func (c Config) FinalityTimeout() time.Duration {
	return seconds(c.FinalityTimeoutSeconds)
}

func (c Config) PollInterval() time.Duration {
	return seconds(c.PollIntervalSeconds)
}

func (c Config) MetadataTimeout() time.Duration {
	return seconds(c.MetadataTimeoutSeconds)
}

func (c Config) MetadataCacheTTL() time.Duration {
	return seconds(c.MetadataCacheTTLSeconds)
}

func (c Config) RateLimitWindow() time.Duration {
	return seconds(c.RateLimitWindowSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func isHexAddress(v string) bool {
	v = strings.TrimPrefix(strings.TrimPrefix(v, "0x"), "0X")
	if len(v) != 40 {
		return false
	}
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
