package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/RealChuan/hlsget/internal/config"
	"github.com/RealChuan/hlsget/internal/download"
	"github.com/RealChuan/hlsget/internal/fetch"
	"github.com/RealChuan/hlsget/internal/keys"
	"github.com/RealChuan/hlsget/internal/playlist"
	"github.com/spf13/cobra"
)

var (
	outputFlag      string
	configFlag      string
	concurrencyFlag int
	retriesFlag     int
	timeoutFlag     float64
	keyFlag         string
	headersFlag     string
	userAgentFlag   string
	variantFlag     string
	baseURLFlag     string
	bestEffortFlag  bool
	dryRunFlag      bool
	verboseFlag     bool
)

func runE(cmd *cobra.Command, args []string) error {
	input := args[0]

	settings := config.DefaultSettings()
	if configFlag != "" {
		var err error
		settings, err = config.Load(configFlag)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
	}

	// Flags override the config file.
	if cmd.Flags().Changed("concurrency") {
		settings.Concurrency = concurrencyFlag
	}
	if cmd.Flags().Changed("retries") {
		settings.MaxRetries = retriesFlag
	}
	if cmd.Flags().Changed("timeout") {
		settings.HTTPTimeout = timeoutFlag
	}
	if cmd.Flags().Changed("user-agent") {
		settings.UserAgent = userAgentFlag
	}
	if cmd.Flags().Changed("variant") {
		settings.VariantPolicy = variantFlag
	}
	if cmd.Flags().Changed("base-url") {
		settings.BaseURL = baseURLFlag
	}
	if bestEffortFlag {
		settings.BestEffort = true
	}
	if keyFlag != "" {
		settings.KeyOverride = keyFlag
	}

	headers, err := config.LoadHeaders(headersFlag)
	if err != nil {
		return err
	}
	for name, value := range headers {
		if settings.Headers == nil {
			settings.Headers = make(map[string]string)
		}
		settings.Headers[name] = value
	}

	policy, err := playlist.PolicyByName(settings.VariantPolicy)
	if err != nil {
		return err
	}

	client := fetch.NewClient(settings.Timeout(), settings.UserAgent, settings.Headers)
	resolver := playlist.NewResolver(playlist.GetFunc(client.Get), policy)
	if settings.BaseURL != "" {
		base, err := url.Parse(settings.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		resolver.SetBase(base)
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	media, err := resolver.Resolve(ctx, input)
	if err != nil {
		return fmt.Errorf("error resolving playlist: %w", err)
	}

	fmt.Printf("Playlist: %d segments, %.0fs of media\n", len(media.Segments), media.TotalDuration())
	if !media.Ended {
		fmt.Println("Warning: playlist has no end marker, treating as complete")
	}

	if dryRunFlag {
		for _, seg := range media.Segments {
			marker := " "
			if seg.Encrypted() {
				marker = "*"
			}
			fmt.Printf("  %s %4d  %6.2fs  %s\n", marker, seg.Index, seg.Duration, seg.URI)
		}
		fmt.Println("\n[Dry run - not downloading]")
		return nil
	}

	keyResolver := keys.NewResolver(keys.GetFunc(client.Get))
	if err := keys.ApplyOverride(keyResolver, media, settings.KeyOverride); err != nil {
		return err
	}

	fetcher := fetch.NewFetcher(client, settings.RetryPolicy())

	manager := download.NewManager(settings, fetcher, keyResolver, func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !verboseFlag {
			return
		}

		prefix := "   "
		switch event.Level {
		case download.LevelError:
			prefix = "!! "
		case download.LevelWarning:
			prefix = " ! "
		case download.LevelSuccess:
			prefix = "ok "
		case download.LevelInfo:
			prefix = "-- "
		}

		fmt.Println(prefix + event.Message)
	})

	output := outputFlag
	if output == "" {
		output = defaultOutput(media.URL)
	}

	report, err := manager.Run(ctx, media, output)
	if err != nil {
		if errors.Is(err, download.ErrAborted) {
			fmt.Println("\nDownload cancelled.")
			os.Exit(130)
		}
		return fmt.Errorf("error during download: %w", err)
	}

	fmt.Printf("\nComplete! %d segments, %.2f MB -> %s\n", report.Segments, float64(report.Bytes)/1024/1024, report.Output)
	if len(report.Skipped) > 0 {
		fmt.Printf("Skipped segments: %v\n", report.Skipped)
	}
	return nil
}

// defaultOutput derives an output filename from the playlist URL,
// falling back to output.ts.
func defaultOutput(u *url.URL) string {
	if u != nil {
		name := path.Base(u.Path)
		if name != "" && name != "." && name != "/" {
			name = strings.TrimSuffix(name, path.Ext(name))
			if name != "" {
				return name + ".ts"
			}
		}
	}
	return "output.ts"
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "hlsget [url]",
		Short: "Download an HLS VOD stream into a single media file",
		Args:  cobra.ExactArgs(1),
		RunE:  runE,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&outputFlag, "output", "o", "", "Output file path (default: derived from playlist URL)")
	flags.StringVar(&configFlag, "config", "", "Path to JSON config file")
	flags.IntVarP(&concurrencyFlag, "concurrency", "c", 6, "Number of concurrent segment downloads")
	flags.IntVar(&retriesFlag, "retries", 5, "Max fetch attempts per segment")
	flags.Float64Var(&timeoutFlag, "timeout", 30, "Per-request HTTP timeout in seconds")
	flags.StringVarP(&keyFlag, "key", "k", "", "Decryption key override: 32 hex chars or a key URL")
	flags.StringVar(&headersFlag, "headers", "", "Path to JSON file containing request headers")
	flags.StringVar(&userAgentFlag, "user-agent", "", "User-Agent header value")
	flags.StringVar(&variantFlag, "variant", "highest", "Variant selection: highest, lowest, or first")
	flags.StringVar(&baseURLFlag, "base-url", "", "Base URL for resolving relative URIs in local playlists")
	flags.BoolVar(&bestEffortFlag, "best-effort", false, "Skip failed segments instead of aborting")
	flags.BoolVar(&dryRunFlag, "dry-run", false, "Parse the playlist without downloading")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Show per-segment progress")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
