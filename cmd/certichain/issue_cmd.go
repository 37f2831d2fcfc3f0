package main

import (
	"errors"
	"flag"
	"fmt"

	"certichain/internal/app"
	"certichain/internal/domain"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"
)

func runIssue(args []string) int {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var data commitment.Data
	var subject string
	var pointer string
	dataFlags(fs, &data)
	fs.StringVar(&subject, "subject", "", "holder wallet address")
	fs.StringVar(&pointer, "pointer", "", "ipfs:// pointer to the uploaded metadata document")

	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if subject == "" || data.Name == "" || data.Email == "" || data.EnrollmentDate == "" {
		fmt.Fprintln(stderr, "issue requires --subject, --name, --email and --enrollment-date")
		return exitError
	}

	ctx, a, closeApp, err := openApp(app.Options{})
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return exitError
	}
	defer closeApp()
	if _, err := a.Signer(); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitError
	}

	result, err := a.Issue.Execute(ctx, usecase.IssueRequest{
		Subject:        subject,
		Name:           data.Name,
		Email:          data.Email,
		Course:         data.Course,
		EnrollmentDate: data.EnrollmentDate,
		ContentPointer: pointer,
	})
	if err != nil {
		fmt.Fprintf(stderr, "issue: %s\n", domain.Display(err))
		if errors.Is(err, domain.ErrTransient) {
			fmt.Fprintln(stderr, "the transaction may still be mined; verify by data before retrying")
		}
		return exitError
	}
	if err := writeJSON(result); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	return exitOK
}

func runRevoke(args []string) int {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var id string
	var reason string
	fs.StringVar(&id, "id", "", "certificate id")
	fs.StringVar(&reason, "reason", "", "revocation reason")

	if err := fs.Parse(args); err != nil {
		return exitError
	}
	recordID, err := usecase.ParseRecordID(id)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitError
	}
	if reason == "" {
		fmt.Fprintln(stderr, "revoke requires --reason")
		return exitError
	}

	ctx, a, closeApp, err := openApp(app.Options{SkipPolicy: true, SkipStore: true})
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return exitError
	}
	defer closeApp()

	receipt, err := a.Revoke.Execute(ctx, recordID, reason)
	if err != nil {
		fmt.Fprintf(stderr, "revoke: %s\n", domain.Display(err))
		return exitError
	}
	if err := writeJSON(receipt); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	return exitOK
}
