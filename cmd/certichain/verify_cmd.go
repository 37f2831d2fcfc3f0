package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"
	"sync"

	"certichain/internal/app"
	"certichain/internal/domain"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"
)

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var id string
	var data commitment.Data
	var fromStdin bool
	fs.StringVar(&id, "id", "", "certificate id")
	dataFlags(fs, &data)
	fs.BoolVar(&fromStdin, "stdin", false, "read one JSON query per line; a new line supersedes the previous query")

	if err := fs.Parse(args); err != nil {
		return exitError
	}
	byData := data.Name != "" || data.Email != "" || data.Course != "" || data.EnrollmentDate != ""
	modes := 0
	for _, set := range []bool{id != "", byData, fromStdin} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(stderr, "verify requires exactly one of --id, the data flags, or --stdin")
		return exitError
	}

	ctx, a, closeApp, err := openApp(app.Options{SkipPolicy: true, SkipStore: true})
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return exitError
	}
	defer closeApp()

	if fromStdin {
		return verifyStream(ctx, usecase.NewVerificationSession(a.Verify))
	}

	var verdict domain.Verdict
	if id != "" {
		recordID, perr := usecase.ParseRecordID(id)
		if perr != nil {
			fmt.Fprintf(stderr, "%v\n", perr)
			return exitError
		}
		verdict, err = a.Verify.ByID(ctx, recordID)
	} else {
		verdict, err = a.Verify.ByData(ctx, data)
	}
	if err != nil {
		fmt.Fprintf(stderr, "verify: %v\n", err)
		return exitError
	}
	if err := writeJSON(verdict); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	return verdictExit(verdict)
}

func verdictExit(v domain.Verdict) int {
	switch v.Status {
	case domain.VerdictValid, domain.VerdictValidIssuerInactive:
		return exitOK
	case domain.VerdictTransient:
		return exitError
	default:
		return exitNotValid
	}
}

type streamQuery struct {
	ID *uint64 `json:"id,omitempty"`
	commitment.Data
}

// verifyStream runs each input line as a session query. Queries are
// registered in input order before they run, so a later line always
// supersedes an earlier one and only the latest verdict can be reported.
func verifyStream(ctx context.Context, session *usecase.VerificationSession) int {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		enc = json.NewEncoder(stdout)
	)
	scanner := bufio.NewScanner(stdin)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var q streamQuery
		if err := json.Unmarshal([]byte(text), &q); err != nil {
			fmt.Fprintf(stderr, "line %d: %v\n", line, err)
			continue
		}
		query := session.Begin(ctx)
		wg.Add(1)
		go func(q streamQuery) {
			defer wg.Done()
			var verdict domain.Verdict
			var err error
			if q.ID != nil {
				verdict, err = query.ByID(*q.ID)
			} else {
				verdict, err = query.ByData(q.Data)
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, domain.ErrSuperseded):
			case err != nil:
				fmt.Fprintf(stderr, "verify: %v\n", err)
			default:
				_ = enc.Encode(verdict)
			}
		}(q)
	}
	wg.Wait()
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return exitError
	}
	last, ok := session.Last()
	if !ok {
		return exitNotValid
	}
	return verdictExit(last)
}
