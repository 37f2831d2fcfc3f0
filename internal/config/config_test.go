package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "LEDGER_MODE", "CHAIN_ID", "REGISTRY_ADDRESS", "CERTIFICATE_ADDRESS", "COMMITMENT_SCHEME", "HISTORY_ENABLED", "LEDGER_TIMEOUT_SECONDS"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" || cfg.LedgerMode != LedgerModeEVM || cfg.ChainID != DefaultChainID {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RegistryAddress != DefaultRegistryAddress || cfg.CertificateAddress != DefaultCertificateAddress {
		t.Fatalf("unexpected contract defaults %+v", cfg)
	}
	if !cfg.HistoryEnabled || cfg.CommitmentScheme != "packed" {
		t.Fatalf("unexpected feature defaults %+v", cfg)
	}
	if cfg.LedgerTimeout() != 10*time.Second {
		t.Fatalf("expected 10s ledger timeout, got %s", cfg.LedgerTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("LEDGER_MODE", "MEMORY")
	t.Setenv("HISTORY_ENABLED", "no")
	t.Setenv("RATE_LIMIT_REQUESTS", "30")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "bogus")
	t.Setenv("POLL_INTERVAL_SECONDS", "-4")

	cfg := FromEnv()
	if cfg.LedgerMode != LedgerModeMemory {
		t.Fatalf("expected memory mode, got %q", cfg.LedgerMode)
	}
	if cfg.HistoryEnabled {
		t.Fatal("expected history disabled")
	}
	if cfg.RateLimitRequests != 30 || cfg.RateLimitWindow() != time.Minute {
		t.Fatalf("unexpected rate limit settings %+v", cfg)
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Fatalf("expected negative value to fall back to default, got %s", cfg.PollInterval())
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Config{
		LedgerMode:         LedgerModeEVM,
		RegistryAddress:    "0x1234",
		CertificateAddress: "not-an-address",
		CommitmentScheme:   "sha1",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"RPC_URL", "CHAIN_ID", "REGISTRY_ADDRESS", "CERTIFICATE_ADDRESS", "COMMITMENT_SCHEME"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}

	if err := (Config{LedgerMode: "ganache"}).Validate(); err == nil {
		t.Fatal("expected unknown ledger mode to fail")
	}
	if err := (Config{LedgerMode: LedgerModeMemory}).Validate(); err != nil {
		t.Fatalf("expected memory mode without contracts to validate, got %v", err)
	}
}

func TestDurationsTreatZeroAsUnset(t *testing.T) {
	cfg := Config{}
	if cfg.FinalityTimeout() != 0 || cfg.MetadataCacheTTL() != 0 {
		t.Fatal("expected zero durations for unset seconds")
	}
	cfg.FinalityTimeoutSeconds = 90
	if cfg.FinalityTimeout() != 90*time.Second {
		t.Fatalf("unexpected finality timeout %s", cfg.FinalityTimeout())
	}
}
