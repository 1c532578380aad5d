// Package main provides a CLI tool for one-off form detection against a URL.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/form-autopilot/internal/browser"
	"github.com/form-autopilot/internal/config"
	"github.com/form-autopilot/internal/detector"
	"github.com/form-autopilot/internal/logging"
	"github.com/form-autopilot/internal/profiling"
)

func main() {
	var (
		url     = flag.String("url", "", "URL of the application form to inspect")
		profile = flag.Bool("profile", false, "Print a phase-by-phase timing report")
		timeout = flag.Duration("timeout", 60*time.Second, "Overall detection timeout")
	)
	flag.Parse()

	if *url == "" {
		fmt.Fprintln(os.Stderr, "Usage: detect -url <form-url> [-profile] [-timeout 60s]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.Logging.Level, "console")
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, logger)

	driver := browser.NewChromeDriver(cfg.Browser)
	det := detector.New(driver, cfg.Browser, *profile)

	schema, profData, err := det.Detect(ctx, *url)
	if err != nil {
		log.Fatalf("Detection failed: %v", err)
	}

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode schema: %v", err)
	}
	fmt.Println(string(out))

	if *profile && profData != nil {
		fmt.Println()
		fmt.Println(profiling.FormatReport(profData))
	}
}
