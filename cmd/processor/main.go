// Command processor runs one ingestion: it reads a day's hall page, stores
// the dated snapshot, rebuilds the aggregate workbook and colours it.
//
//	processor -html page.html -date 2024-10-17
//	processor -url https://example.com/hall -upload
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotledger/internal/config"
	"slotledger/internal/infrastructure"
	"slotledger/internal/operations"
	"slotledger/internal/scraper"
	"slotledger/internal/upload"
	"slotledger/pkg/contracts"
	"slotledger/pkg/contracts/domain"
)

// options holds the parsed command line
type options struct {
	htmlPath   string
	markup     string
	url        string
	date       string
	storeDir   string
	outPath    string
	configFile string
	upload     bool
	version    bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("processor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.htmlPath, "html", "", "read markup from a saved HTML file")
	fs.StringVar(&opts.markup, "markup", "", "markup given inline")
	fs.StringVar(&opts.url, "url", "", "render markup from a URL with headless Chrome")
	fs.StringVar(&opts.date, "date", "", "snapshot date as YYYY-MM-DD (default today)")
	fs.StringVar(&opts.storeDir, "store", "", "snapshot directory (overrides config)")
	fs.StringVar(&opts.outPath, "out", "", "aggregate workbook path (overrides config)")
	fs.StringVar(&opts.configFile, "config", os.Getenv(config.ConfigFileEnv), "YAML config file")
	fs.BoolVar(&opts.upload, "upload", false, "upload both artifacts after a successful run")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.version {
		return opts, nil
	}

	given := 0
	for _, v := range []string{opts.htmlPath, opts.markup, opts.url} {
		if v != "" {
			given++
		}
	}
	if given != 1 {
		return nil, errors.New("exactly one of -html, -markup or -url is required")
	}
	if opts.date != "" {
		if _, err := time.Parse(domain.FileDateLayout, opts.date); err != nil {
			return nil, fmt.Errorf("invalid -date %q: want YYYY-MM-DD", opts.date)
		}
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "error:", err)
		}
		return 2
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return 0
	}

	cfg, err := config.LoadFile(opts.configFile)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if opts.upload {
		cfg.Upload.Enabled = true
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(stderr, "warning: failed to initialize logger, using default:", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	pipelineOpts := []operations.Option{operations.WithLogger(logger)}
	if cfg.Upload.Enabled {
		uploader, err := upload.New(ctx, cfg.Upload, logger)
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return 1
		}
		pipelineOpts = append(pipelineOpts, operations.WithUploader(uploader))
	}

	pipeline, err := operations.NewPipeline(cfg, pipelineOpts...)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	req := operations.Request{
		Source:       sourceFor(opts, cfg, logger),
		StoreDir:     opts.storeDir,
		WorkbookPath: opts.outPath,
	}
	if opts.date != "" {
		req.Date, _ = time.Parse(domain.FileDateLayout, opts.date)
	}

	result, err := pipeline.Run(ctx, req)
	if err != nil {
		if step := operations.FailedStep(err); step != "" {
			fmt.Fprintf(stderr, "failed at step %s: %v\n", step, err)
		} else {
			fmt.Fprintln(stderr, "error:", err)
		}
		if result != nil && result.SnapshotPath != "" {
			fmt.Fprintln(stderr, "snapshot kept:", result.SnapshotPath)
		}
		return 1
	}

	printResult(stdout, result)
	for _, msg := range result.UploadErrors {
		fmt.Fprintln(stderr, "upload error:", msg)
	}
	return 0
}

func sourceFor(opts *options, cfg *config.Config, logger *slog.Logger) scraper.Source {
	switch {
	case opts.htmlPath != "":
		return scraper.NewFileSource(opts.htmlPath)
	case opts.url != "":
		return scraper.NewURLSource(opts.url, cfg.Scraper, logger)
	default:
		return scraper.NewTextSource(opts.markup)
	}
}

func printResult(w io.Writer, r *operations.Result) {
	fmt.Fprintf(w, "date:     %s\n", r.Date)
	fmt.Fprintf(w, "snapshot: %s (%d records)\n", r.SnapshotPath, r.Records)
	fmt.Fprintf(w, "workbook: %s (%d machines x %d dates)\n", r.WorkbookPath, r.Machines, r.Dates)
	fmt.Fprintf(w, "bands:    low=%d mid=%d none=%d\n", r.Bands.Low, r.Bands.Mid, r.Bands.None)
	for _, u := range r.Uploads {
		fmt.Fprintf(w, "uploaded: %s\n", u.Location)
	}
}
