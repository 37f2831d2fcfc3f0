package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"certichain/internal/app"
	"certichain/internal/domain"
	"certichain/internal/infra/ledger/ledgermem"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
)

func runCLI(t *testing.T, input string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	prevIn, prevOut, prevErr := stdin, stdout, stderr
	stdin, stdout, stderr = strings.NewReader(input), &out, &errOut
	defer func() { stdin, stdout, stderr = prevIn, prevOut, prevErr }()
	code := run(append([]string{"certichain"}, args...))
	return code, out.String(), errOut.String()
}

func useMemoryLedger(t *testing.T) {
	t.Helper()
	t.Setenv("LEDGER_MODE", "memory")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("MEMORY_LEDGER_OWNER", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METADATA_GATEWAY_URL", "")
}

func TestCommitPrintsCommitment(t *testing.T) {
	code, out, errOut := runCLI(t, "", "commit",
		"--name", "Ada Lovelace",
		"--email", "ada@example.org",
		"--course", "Analytical Engines",
		"--enrollment-date", "2020-09-01")
	if code != exitOK {
		t.Fatalf("expected success, got %d: %s", code, errOut)
	}
	var got commitment.Commitment
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	want, err := commitment.Default().CommitData(commitment.Data{
		Name:           "Ada Lovelace",
		Email:          "ada@example.org",
		Course:         "Analytical Engines",
		EnrollmentDate: "2020-09-01",
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got.Value != want.Value || got.Scheme != commitment.SchemePacked {
		t.Fatalf("unexpected commitment %+v", got)
	}
}

func TestCommitRequiresFields(t *testing.T) {
	code, _, errOut := runCLI(t, "", "commit", "--name", "Ada")
	if code != exitError || !strings.Contains(errOut, "requires") {
		t.Fatalf("expected usage error, got %d %q", code, errOut)
	}
	code, _, _ = runCLI(t, "", "commit", "--name", "a", "--email", "b", "--enrollment-date", "2020-01-01", "--scheme", "md5")
	if code != exitError {
		t.Fatalf("expected unknown scheme to fail, got %d", code)
	}
}

func TestMetadataBuildOmitsEmail(t *testing.T) {
	code, out, errOut := runCLI(t, "", "metadata", "build",
		"--name", "Ada Lovelace",
		"--course", "Analytical Engines",
		"--enrollment-date", "2020-09-01")
	if code != exitOK {
		t.Fatalf("expected success, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, commitment.Fingerprint("Ada Lovelace").Hex()) {
		t.Fatalf("expected name fingerprint in document: %s", out)
	}
	if strings.Contains(out, "Ada Lovelace") {
		t.Fatalf("expected plain name to be absent: %s", out)
	}
}

func TestUnknownCommandPrintsUsage(t *testing.T) {
	code, _, errOut := runCLI(t, "", "frobnicate")
	if code != exitError || !strings.Contains(errOut, "usage:") {
		t.Fatalf("expected usage, got %d %q", code, errOut)
	}
}

func TestVerifyByIDNotFound(t *testing.T) {
	useMemoryLedger(t)
	code, out, errOut := runCLI(t, "", "verify", "--id", "1")
	if code != exitNotValid {
		t.Fatalf("expected not-valid exit, got %d: %s", code, errOut)
	}
	var v domain.Verdict
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if v.Status != domain.VerdictNotFound || v.Message != domain.MessageNotFoundOnChain {
		t.Fatalf("unexpected verdict %+v", v)
	}
}

func TestVerifyRejectsMixedModes(t *testing.T) {
	code, _, errOut := runCLI(t, "", "verify", "--id", "1", "--name", "Ada")
	if code != exitError || !strings.Contains(errOut, "exactly one") {
		t.Fatalf("expected mode error, got %d %q", code, errOut)
	}
}

func TestVerifyStdinSession(t *testing.T) {
	useMemoryLedger(t)
	input := strings.Join([]string{
		`{"id": 3}`,
		`not json`,
		`{"name":"Ada","email":"ada@example.org","course":"X","enrollment_date":"2020-09-01"}`,
	}, "\n")
	code, out, errOut := runCLI(t, input, "verify", "--stdin")
	if code != exitNotValid {
		t.Fatalf("expected not-valid exit, got %d: %s", code, errOut)
	}
	if !strings.Contains(errOut, "line 2") {
		t.Fatalf("expected malformed line to be reported: %q", errOut)
	}
	if !strings.Contains(out, string(domain.VerdictNotFound)) {
		t.Fatalf("expected a not-found verdict, got %q", out)
	}
}

func TestVerifyStreamReportsOnlyLatestLine(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	institution := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	l := ledgermem.New(owner)
	ctx := context.Background()
	if _, err := l.Client(owner).RegisterInstitution(ctx, institution, "University A"); err != nil {
		t.Fatalf("register: %v", err)
	}
	issuer := l.Client(institution)
	issued, err := usecase.NewIssueCertificate(commitment.Default(), issuer, issuer).Execute(ctx, usecase.IssueRequest{
		Subject:        "0x00000000000000000000000000000000000000c1",
		Name:           "Ada Lovelace",
		Email:          "ada@example.org",
		Course:         "Analytical Engines",
		EnrollmentDate: "2020-09-01",
	})
	if err != nil || issued.RecordID != 1 {
		t.Fatalf("issue: %v %+v", err, issued)
	}
	reader := l.Client(common.Address{})
	resolver := usecase.NewVerifyCertificate(commitment.Default(), reader, reader, time.Second)
	l.SetLatency(2 * time.Millisecond)

	for i := 0; i < 20; i++ {
		var out, errOut bytes.Buffer
		prevIn, prevOut, prevErr := stdin, stdout, stderr
		stdin, stdout, stderr = strings.NewReader("{\"id\":1}\n{\"id\":99}\n"), &out, &errOut
		code := verifyStream(ctx, usecase.NewVerificationSession(resolver))
		stdin, stdout, stderr = prevIn, prevOut, prevErr

		if code != exitNotValid {
			t.Fatalf("run %d: expected not-valid exit for the last line, got %d: %s", i, code, errOut.String())
		}
		var verdicts []domain.Verdict
		dec := json.NewDecoder(&out)
		for dec.More() {
			var v domain.Verdict
			if err := dec.Decode(&v); err != nil {
				t.Fatalf("run %d: decode output: %v", i, err)
			}
			verdicts = append(verdicts, v)
		}
		if len(verdicts) != 1 || verdicts[0].Status != domain.VerdictNotFound {
			t.Fatalf("run %d: expected only the not-found verdict of the last line, got %+v", i, verdicts)
		}
	}
}

func TestIssueAndListInstitutionsInMemory(t *testing.T) {
	useMemoryLedger(t)
	code, out, errOut := runCLI(t, "", "issue",
		"--subject", "0x00000000000000000000000000000000000000c1",
		"--name", "Ada Lovelace",
		"--email", "ada@example.org",
		"--course", "Analytical Engines",
		"--enrollment-date", "2020-09-01")
	if code != exitOK {
		t.Fatalf("expected issuance, got %d: %s", code, errOut)
	}
	var result struct {
		RecordID uint64 `json:"record_id"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil || result.RecordID != 1 {
		t.Fatalf("unexpected issue output %q err=%v", out, err)
	}

	code, out, errOut = runCLI(t, "", "institutions", "list")
	if code != exitOK {
		t.Fatalf("expected listing, got %d: %s", code, errOut)
	}
	if !strings.Contains(strings.ToLower(out), strings.ToLower(app.DefaultMemoryOwner)) {
		t.Fatalf("expected default owner in listing: %s", out)
	}
}

func TestRevokeValidatesInput(t *testing.T) {
	code, _, errOut := runCLI(t, "", "revoke", "--id", "abc", "--reason", "fraud")
	if code != exitError || !strings.Contains(errOut, "non-negative integer") {
		t.Fatalf("expected id error, got %d %q", code, errOut)
	}
	code, _, errOut = runCLI(t, "", "revoke", "--id", "1")
	if code != exitError || !strings.Contains(errOut, "--reason") {
		t.Fatalf("expected reason error, got %d %q", code, errOut)
	}
}
