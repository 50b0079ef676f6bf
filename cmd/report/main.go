// Command report prints the revenue report of a spreadsheet file as JSON.
//
//	report -file data.xlsx [-sheet Plan1] [-years 2024,2025] [-quarters 1,2] [-policy drop]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"faturamento/internal/cli"
	"faturamento/internal/config"
	apphttp "faturamento/internal/http"
	"faturamento/internal/log"
	"faturamento/internal/services"
	"faturamento/internal/sheets/file"
)

func main() {
	cli.LoadEnvFile()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("file", "", "xlsx or csv file to read (required)")
	sheet := fs.String("sheet", "", "worksheet name; defaults to the first sheet")
	fs.String("years", "", "comma-separated years to include")
	fs.String("quarters", "", "comma-separated quarters (1-4) to include")
	fs.String("policy", "", "malformed row policy: abort or drop")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *path == "" {
		fmt.Fprintln(stderr, "report: -file is required")
		fs.Usage()
		return 2
	}

	cfg := config.Load()
	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: stderr,
	})

	// Only flags given on the command line become selections, so an
	// omitted -years keeps every year.
	query := url.Values{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "years", "quarters", "policy":
			query.Set(f.Name, f.Value.String())
		}
	})
	opts, err := apphttp.ParseReportOptions(query)
	if err != nil {
		fmt.Fprintf(stderr, "report: %v\n", err)
		return 2
	}

	policy, err := cfg.Policy()
	if err != nil {
		fmt.Fprintf(stderr, "report: %v\n", err)
		return 2
	}
	reports := services.NewReportService(
		services.ReportDefaults{Columns: cfg.Columns, Policy: policy},
		nil,
		logger,
		services.Source{Name: "file:" + filepath.Base(*path), Reader: &file.Reader{Path: *path, Sheet: *sheet}},
	)

	rep, err := reports.Build(ctx, opts)
	if err != nil {
		fmt.Fprintf(stderr, "report: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(apphttp.NewReportView(rep)); err != nil {
		fmt.Fprintf(stderr, "report: %v\n", err)
		return 1
	}
	return 0
}
