package policyopa

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"certichain/internal/domain"
)

func TestEngineDeterministic(t *testing.T) {
	engine := newTestEngine(t)
	input := basePolicyInput()

	first, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate first: %v", err)
	}
	second, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate second: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected deterministic policy evaluation")
	}
	if !first.Result.Allow {
		t.Fatalf("expected allow for baseline input, got %+v", first.Result.Deny)
	}
	if len(first.Result.Deny) != 0 {
		t.Fatalf("expected empty deny list")
	}
	if first.BundleHash == "" || first.BundleID != DefaultBundleID {
		t.Fatalf("expected bundle identity to be set, got %q %q", first.BundleID, first.BundleHash)
	}
}

func TestEnginePolicyDenies(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name   string
		mutate func(input *domain.IssuancePolicyInput)
		want   []string
	}{
		{
			name:   "empty course",
			mutate: func(input *domain.IssuancePolicyInput) { input.Course = "   " },
			want:   []string{"COURSE_REQUIRED"},
		},
		{
			name:   "long course",
			mutate: func(input *domain.IssuancePolicyInput) { input.Course = strings.Repeat("x", 257) },
			want:   []string{"COURSE_TOO_LONG"},
		},
		{
			name:   "email without at",
			mutate: func(input *domain.IssuancePolicyInput) { input.EmailHasAt = false },
			want:   []string{"EMAIL_MALFORMED"},
		},
		{
			name:   "future enrollment",
			mutate: func(input *domain.IssuancePolicyInput) { input.EnrollmentDate = uint64(input.Now + 86400) },
			want:   []string{"ENROLLMENT_IN_FUTURE"},
		},
		{
			name: "self issuance and long identity",
			mutate: func(input *domain.IssuancePolicyInput) {
				input.Subject = strings.ToLower(input.Issuer)
				input.NameLength = 600
				input.EmailLength = 600
			},
			want: []string{"EMAIL_TOO_LONG", "NAME_TOO_LONG", "SUBJECT_IS_ISSUER"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := basePolicyInput()
			tt.mutate(&input)
			eval, err := engine.Evaluate(context.Background(), input)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if eval.Result.Allow {
				t.Fatalf("expected deny")
			}
			got := make([]string, 0, len(eval.Result.Deny))
			for _, d := range eval.Result.Deny {
				got = append(got, d.Code)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected deny codes %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEngineRejectsForbiddenBuiltins(t *testing.T) {
	dir := t.TempDir()
	policy := `package certichain.issuance

import rego.v1

result := {"allow": true, "deny": [], "at": time.now_ns()}
`
	if err := os.WriteFile(filepath.Join(dir, "policy.rego"), []byte(policy), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if _, err := NewEngineFromBundlePath(context.Background(), dir, "custom"); err == nil {
		t.Fatal("expected policy using time.now_ns to be rejected")
	}
}

func TestEngineFromBundlePath(t *testing.T) {
	dir := t.TempDir()
	policy := `package certichain.issuance

import rego.v1

result := {"allow": false, "deny": [{"code": "CLOSED", "message": "issuance paused"}]}
`
	if err := os.WriteFile(filepath.Join(dir, "policy.rego"), []byte(policy), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	engine, err := NewEngineFromBundlePath(context.Background(), dir, "paused")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	eval, err := engine.Evaluate(context.Background(), basePolicyInput())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Result.Allow || len(eval.Result.Deny) != 1 || eval.Result.Deny[0].Code != "CLOSED" {
		t.Fatalf("unexpected evaluation: %+v", eval)
	}

	again, err := ComputeBundleHashFromPath(dir)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if again != engine.BundleHash() {
		t.Fatal("expected stable bundle hash")
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewDefaultEngine(context.Background())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func basePolicyInput() domain.IssuancePolicyInput {
	return domain.IssuancePolicyInput{
		Issuer:         "0x00000000000000000000000000000000000000B1",
		Subject:        "0x00000000000000000000000000000000000000C1",
		NameLength:     8,
		EmailLength:    16,
		EmailHasAt:     true,
		Course:         "BSc Physics",
		EnrollmentDate: 1598918400,
		ContentPointer: "QmPlaceholder",
		Now:            1700000000,
	}
}
