package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"certichain/internal/app"
	"certichain/internal/config"
	"certichain/internal/infra/logging"
)

const (
	exitOK       = 0
	exitError    = 1
	exitNotValid = 2
)

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return exitError
	}

	switch args[1] {
	case "commit":
		return runCommit(args[2:])
	case "verify":
		return runVerify(args[2:])
	case "issue":
		return runIssue(args[2:])
	case "revoke":
		return runRevoke(args[2:])
	case "institutions":
		if len(args) >= 3 {
			switch args[2] {
			case "list":
				return runInstitutionsList(args[3:])
			case "status":
				return runInstitutionStatus(args[3:])
			case "register":
				return runInstitutionRegister(args[3:])
			case "remove":
				return runInstitutionRemove(args[3:])
			}
		}
	case "metadata":
		if len(args) >= 3 && args[2] == "build" {
			return runMetadataBuild(args[3:])
		}
	case "history":
		if len(args) >= 3 {
			switch args[2] {
			case "sync":
				return runHistorySync(args[3:])
			case "watch":
				return runHistoryWatch(args[3:])
			}
		}
	}

	usage(args)
	return exitError
}

func usage(args []string) {
	name := "certichain"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(stderr, "usage:\n")
	fmt.Fprintf(stderr, "  %s commit --name <name> --email <email> --course <course> --enrollment-date <date> [--scheme packed|length_prefixed]\n", name)
	fmt.Fprintf(stderr, "  %s verify (--id <n> | --name <name> --email <email> --course <course> --enrollment-date <date> | --stdin)\n", name)
	fmt.Fprintf(stderr, "  %s issue --subject <address> --name <name> --email <email> --course <course> --enrollment-date <date> [--pointer <ipfs uri>]\n", name)
	fmt.Fprintf(stderr, "  %s revoke --id <n> --reason <text>\n", name)
	fmt.Fprintf(stderr, "  %s institutions list\n", name)
	fmt.Fprintf(stderr, "  %s institutions status --address <address>\n", name)
	fmt.Fprintf(stderr, "  %s institutions register --address <address> --name <name>\n", name)
	fmt.Fprintf(stderr, "  %s institutions remove --address <address>\n", name)
	fmt.Fprintf(stderr, "  %s metadata build --name <name> --course <course> --enrollment-date <date> [--out <file>]\n", name)
	fmt.Fprintf(stderr, "  %s history sync [--idle <duration>] [--limit <n>]\n", name)
	fmt.Fprintf(stderr, "  %s history watch [--from-block <n>]\n", name)
	fmt.Fprintf(stderr, "ledger, store and key settings are read from the environment (see .env.example)\n")
}

// openApp builds the application from the environment. The returned context
// ends on SIGINT or SIGTERM.
func openApp(opts app.Options) (context.Context, *app.App, func(), error) {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.NewWithWriter(cfg, stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a, err := app.NewWithOptions(ctx, cfg, logger, opts)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}
	return ctx, a, func() {
		a.Close()
		stop()
	}, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeOutput(path string, payload []byte) error {
	if path == "" {
		_, err := stdout.Write(append(payload, '\n'))
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
