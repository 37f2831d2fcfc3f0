package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrInputValidation     = errors.New("input validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrDuplicateCommitment = errors.New("certificate with this data hash already exists")
	ErrNotFound            = errors.New("not found")
	ErrTransient           = errors.New("ledger temporarily unavailable")
	ErrAlreadyRevoked      = errors.New("certificate already revoked")
	ErrSuperseded          = errors.New("query superseded by a newer one")
	ErrReadOnly            = errors.New("ledger client has no signing account")
	ErrLedgerRejected      = errors.New("ledger rejected the request")

	ErrNotIssuer = fmt.Errorf("%w: caller is not the certificate issuer", ErrUnauthorized)
	ErrNotOwner  = fmt.Errorf("%w: caller is not the registry owner", ErrUnauthorized)
)

// DisplayLimit bounds ledger rejection reasons shown to end users. The full
// reason is kept on the error for logs.
const DisplayLimit = 160

// LedgerError carries a ledger rejection or transport failure. Kind is one of
// the sentinels above; Reason is the ledger's own text.
type LedgerError struct {
	Op     string
	Kind   error
	Reason string
	Err    error
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("ledger error")
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *LedgerError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func (e *LedgerError) Display() string {
	reason := e.Reason
	if reason == "" && e.Kind != nil {
		reason = e.Kind.Error()
	}
	return Truncate(reason, DisplayLimit)
}

// Display returns a user-presentable message for any error.
func Display(err error) string {
	if err == nil {
		return ""
	}
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr.Display()
	}
	return Truncate(err.Error(), DisplayLimit)
}

func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func InputError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInputValidation, fmt.Sprintf(format, args...))
}
