// Command render turns JSON document requests into PDF files without the HTTP
// server:
//
//	render -in lab.json -in audit.json -out ./out [-fallback-only]
//
// Each input file holds one {"config": ..., "content": ...} request.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"report-service-go/internal/app"
	"report-service-go/internal/domain/pdf"
	"report-service-go/internal/pkg/config"
	"report-service-go/internal/pkg/logger"

	"go.uber.org/zap"
)

type inputs []string

func (i *inputs) String() string { return strings.Join(*i, ",") }

func (i *inputs) Set(v string) error {
	*i = append(*i, v)
	return nil
}

func main() {
	var (
		in           inputs
		outDir       = flag.String("out", ".", "directory for the produced PDF files")
		fallbackOnly = flag.Bool("fallback-only", false, "draw every document with the fallback renderer")
		concurrency  = flag.Int("concurrency", pdf.DefaultBatchLimit, "documents rendered at once")
		logLevel     = flag.String("log-level", "warn", "log level")
	)
	flag.Var(&in, "in", "request file (repeatable)")
	flag.Parse()

	if len(in) == 0 {
		fmt.Fprintln(os.Stderr, "render: at least one -in file is required")
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(*logLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, in, *outDir, *fallbackOnly, *concurrency); err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger, files []string, outDir string, fallbackOnly bool, concurrency int) error {
	reqs := make([]pdf.Request, len(files))
	for i, path := range files {
		req, err := readRequest(path)
		if err != nil {
			return err
		}
		reqs[i] = req
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	service, err := app.New(ctx, config.Load(), log, app.Options{
		FallbackOnly:    fallbackOnly,
		NoArtifacts:     true,
		NoGenerationLog: true,
	})
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	names := outputNames(files, reqs)
	var failed []error
	for i, res := range service.Generator.GenerateBatch(ctx, reqs, concurrency) {
		if res.Err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", files[i], res.Err))
			continue
		}
		out := filepath.Join(outDir, names[i])
		if err := os.WriteFile(out, res.Result.PDF, 0o644); err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", files[i], err))
			continue
		}
		fmt.Printf("%s -> %s (%s, %d pages)\n", files[i], out, res.Result.Backend, res.Result.Pages)
	}
	return errors.Join(failed...)
}

func readRequest(path string) (pdf.Request, error) {
	var req pdf.Request
	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

// outputName prefers the report number and falls back to the input file name.
func outputName(path string, req pdf.Request) string {
	name := strings.TrimSpace(req.Config.ReportNumber)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return strings.NewReplacer("/", "_", `\`, "_", " ", "_").Replace(name) + ".pdf"
}

// outputNames assigns every input its own file. Inputs that map to the same
// name get -2, -3, ... suffixes in input order.
func outputNames(files []string, reqs []pdf.Request) []string {
	names := make([]string, len(files))
	taken := make(map[string]bool, len(files))
	for i := range files {
		stem := strings.TrimSuffix(outputName(files[i], reqs[i]), ".pdf")
		name := stem + ".pdf"
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s-%d.pdf", stem, n)
		}
		taken[name] = true
		names[i] = name
	}
	return names
}
