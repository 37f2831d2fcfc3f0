package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"certichain/internal/app"
	"certichain/internal/domain"
	"certichain/internal/usecase"
)

// runHistorySync backfills the configured history store and prints the
// newest events. With POSTGRES_DSN set the events persist for the daemon.
func runHistorySync(args []string) int {
	fs := flag.NewFlagSet("history sync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var idle time.Duration
	var limit int
	fs.DurationVar(&idle, "idle", 10*time.Second, "stop after no event arrives for this long")
	fs.IntVar(&limit, "limit", usecase.DefaultHistoryLimit, "events to print")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	ctx, a, closeApp, err := openApp(app.Options{SkipPolicy: true})
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return exitError
	}
	defer closeApp()

	n, err := a.Indexer.Sync(ctx, idle)
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(stderr, "sync: %s\n", domain.Display(err))
		return exitError
	}
	fmt.Fprintf(stderr, "stored %d new events\n", n)

	events, err := a.History.List(ctx, usecase.HistoryFilter{Limit: limit})
	if err != nil {
		fmt.Fprintf(stderr, "list: %v\n", err)
		return exitError
	}
	if err := writeJSON(events); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	return exitOK
}

// runHistoryWatch streams ledger events as JSON lines until interrupted.
func runHistoryWatch(args []string) int {
	fs := flag.NewFlagSet("history watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var fromBlock int64
	fs.Int64Var(&fromBlock, "from-block", -1, "first block to read (default: current head)")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	ctx, a, closeApp, err := openApp(app.Options{SkipPolicy: true, SkipStore: true})
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return exitError
	}
	defer closeApp()

	start := uint64(fromBlock)
	if fromBlock < 0 {
		head, err := a.Ledger.LatestBlock(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "head: %s\n", domain.Display(err))
			return exitError
		}
		start = head
	}
	sub, err := a.Ledger.Subscribe(ctx, start)
	if err != nil {
		fmt.Fprintf(stderr, "subscribe: %s\n", domain.Display(err))
		return exitError
	}
	defer sub.Unsubscribe()

	enc := json.NewEncoder(stdout)
	for {
		select {
		case <-ctx.Done():
			return exitOK
		case err := <-sub.Err():
			fmt.Fprintf(stderr, "subscription: %s\n", domain.Display(err))
			return exitError
		case ev, ok := <-sub.Events():
			if !ok {
				return exitOK
			}
			if err := enc.Encode(ev); err != nil {
				fmt.Fprintf(stderr, "write output: %v\n", err)
				return exitError
			}
		}
	}
}
