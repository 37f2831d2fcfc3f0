package main

import (
	"flag"
	"fmt"

	"certichain/internal/app"
	"certichain/internal/domain"
	"certichain/internal/usecase"
)

var directoryOptions = app.Options{SkipPolicy: true, SkipStore: true}

func runInstitutionsList(args []string) int {
	fs := flag.NewFlagSet("institutions list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	ctx, a, closeApp, err := openApp(directoryOptions)
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return exitError
	}
	defer closeApp()

	owner, err := a.Institutions.Owner(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "owner: %s\n", domain.Display(err))
		return exitError
	}
	list, err := a.Institutions.List(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "list: %s\n", domain.Display(err))
		return exitError
	}
	out := struct {
		Owner        string               `json:"owner"`
		Institutions []domain.Institution `json:"institutions"`
	}{Owner: owner.Hex(), Institutions: list}
	if err := writeJSON(out); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	return exitOK
}

func runInstitutionStatus(args []string) int {
	fs := flag.NewFlagSet("institutions status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var address string
	fs.StringVar(&address, "address", "", "institution address")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	addr, err := usecase.ParseAddress(address)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitError
	}

	ctx, a, closeApp, err := openApp(directoryOptions)
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return exitError
	}
	defer closeApp()

	inst, err := a.Institutions.Status(ctx, addr)
	if err != nil {
		fmt.Fprintf(stderr, "status: %s\n", domain.Display(err))
		return exitError
	}
	if err := writeJSON(inst); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	if !inst.Authorized {
		return exitNotValid
	}
	return exitOK
}

func runInstitutionRegister(args []string) int {
	fs := flag.NewFlagSet("institutions register", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var address string
	var name string
	fs.StringVar(&address, "address", "", "institution address")
	fs.StringVar(&name, "name", "", "institution display name")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	addr, err := usecase.ParseAddress(address)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitError
	}

	ctx, a, closeApp, err := openApp(directoryOptions)
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return exitError
	}
	defer closeApp()

	receipt, err := a.Institutions.Register(ctx, addr, name)
	if err != nil {
		fmt.Fprintf(stderr, "register: %s\n", domain.Display(err))
		return exitError
	}
	if err := writeJSON(receipt); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	return exitOK
}

func runInstitutionRemove(args []string) int {
	fs := flag.NewFlagSet("institutions remove", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var address string
	fs.StringVar(&address, "address", "", "institution address")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	addr, err := usecase.ParseAddress(address)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitError
	}

	ctx, a, closeApp, err := openApp(directoryOptions)
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return exitError
	}
	defer closeApp()

	receipt, err := a.Institutions.Remove(ctx, addr)
	if err != nil {
		fmt.Fprintf(stderr, "remove: %s\n", domain.Display(err))
		return exitError
	}
	if err := writeJSON(receipt); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	return exitOK
}
