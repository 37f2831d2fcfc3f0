package main

import (
	"flag"
	"fmt"

	"certichain/internal/infra/metadata"
	"certichain/pkg/commitment"
)

func dataFlags(fs *flag.FlagSet, data *commitment.Data) {
	fs.StringVar(&data.Name, "name", "", "holder full name, exactly as issued")
	fs.StringVar(&data.Email, "email", "", "holder email, exactly as issued")
	fs.StringVar(&data.Course, "course", "", "course title")
	fs.StringVar(&data.EnrollmentDate, "enrollment-date", "", "enrollment date (YYYY-MM-DD, RFC3339 or unix seconds)")
}

func runCommit(args []string) int {
	fs := flag.NewFlagSet("commit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var data commitment.Data
	var scheme string
	dataFlags(fs, &data)
	fs.StringVar(&scheme, "scheme", string(commitment.SchemePacked), "commitment scheme")

	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if data.Name == "" || data.Email == "" || data.EnrollmentDate == "" {
		fmt.Fprintln(stderr, "commit requires --name, --email and --enrollment-date")
		return exitError
	}

	parsed, err := commitment.ParseScheme(scheme)
	if err != nil {
		fmt.Fprintf(stderr, "scheme: %v\n", err)
		return exitError
	}
	engine, err := commitment.NewEngine(parsed)
	if err != nil {
		fmt.Fprintf(stderr, "scheme: %v\n", err)
		return exitError
	}
	commit, err := engine.CommitData(data)
	if err != nil {
		fmt.Fprintf(stderr, "commit: %v\n", err)
		return exitError
	}
	if err := writeJSON(commit); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	return exitOK
}

func runMetadataBuild(args []string) int {
	fs := flag.NewFlagSet("metadata build", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var name string
	var course string
	var enrollmentDate string
	var outPath string
	fs.StringVar(&name, "name", "", "holder full name; only its fingerprint is written")
	fs.StringVar(&course, "course", "", "course title")
	fs.StringVar(&enrollmentDate, "enrollment-date", "", "enrollment date")
	fs.StringVar(&outPath, "out", "", "output path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if name == "" || course == "" || enrollmentDate == "" {
		fmt.Fprintln(stderr, "metadata build requires --name, --course and --enrollment-date")
		return exitError
	}
	epoch, err := commitment.ParseEnrollmentDate(enrollmentDate)
	if err != nil {
		fmt.Fprintf(stderr, "enrollment date: %v\n", err)
		return exitError
	}
	payload, err := metadata.Build(name, course, epoch).JSON()
	if err != nil {
		fmt.Fprintf(stderr, "marshal metadata: %v\n", err)
		return exitError
	}
	if err := writeOutput(outPath, payload); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	return exitOK
}
