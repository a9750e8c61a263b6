package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/williampepple1/coze-template-scraper/internal/config"
	"github.com/williampepple1/coze-template-scraper/internal/export"
	"github.com/williampepple1/coze-template-scraper/internal/logging"
	"github.com/williampepple1/coze-template-scraper/internal/metrics"
	"github.com/williampepple1/coze-template-scraper/internal/scraper"
	"github.com/williampepple1/coze-template-scraper/internal/server"
)

var (
	// Global flags
	configFile string
	verbose    bool

	// Export flags
	outputDir    string
	outputFile   string
	outputFormat string
	source       string
	inputFile    string
	force        bool
	timeout      time.Duration
	headless     bool
	proxies      []string

	// Serve flags
	addr string

	appConfig *config.AppConfig
	logger    *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cozescraper",
	Short: "Export coze.cn template listings to CSV",
	Long: `cozescraper loads a coze.cn template listing page, extracts every
template card and writes them to coze_data.csv.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appConfig, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}

		applyFetchFlags(cmd)
		if err := appConfig.Validate(); err != nil {
			return err
		}

		logger, err = logging.New(appConfig.Logging, verbose)
		if err != nil {
			return err
		}
		if configFile != "" {
			logger.Debug("loaded configuration", zap.String("path", configFile))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [url]",
	Short: "Scrape a template listing page and save the records",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyExportFlags(cmd); err != nil {
			return err
		}

		url := ""
		if len(args) > 0 {
			url = args[0]
		}

		runner, _, err := newRunner()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := runner.Export(ctx, url)
		if err != nil {
			if errors.Is(err, export.ErrNotApplicable) {
				return fmt.Errorf("%w (use --force to export anyway)", err)
			}
			return err
		}

		if summary.Output == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No page to export")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d templates in %v\n", summary.Count, summary.Duration.Round(time.Millisecond))
		if summary.Screenshot != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Screenshot saved to: %s\n", summary.Screenshot)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results saved to %s\n", summary.Output)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Report whether a URL is a supported template listing page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok := export.Applicable(args[0], appConfig.Export.URLPattern)
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"url":        args[0],
			"applicable": ok,
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the export API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			appConfig.Server.Addr = addr
		}

		runner, m, err := newRunner()
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              appConfig.Server.Addr,
			Handler:           server.New(runner, m, logger).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	addFetchFlags(rootCmd.PersistentFlags())
	addExportFlags(exportCmd.Flags())

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address")

	rootCmd.AddCommand(exportCmd, checkCmd, serveCmd)
}

func addFetchFlags(fs *pflag.FlagSet) {
	fs.StringVar(&source, "source", "", "Page source: browser, http or file")
	fs.StringVar(&inputFile, "file", "", "Saved HTML page to read with --source file (- for stdin)")
	fs.DurationVar(&timeout, "timeout", 0, "Page load timeout")
	fs.BoolVar(&headless, "headless", true, "Run the browser headless")
	fs.StringSliceVar(&proxies, "proxy", nil, "Proxy URL, may be repeated")
	fs.BoolVar(&force, "force", false, "Scrape pages outside the template listing")
}

func addExportFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&outputDir, "output-dir", "d", "", "Directory to save results to")
	fs.StringVarP(&outputFile, "output", "o", "", "File name to save results to, without a directory (see --output-dir)")
	fs.StringVarP(&outputFormat, "format", "f", "", "Output format: csv or json")
}

// applyExportFlags copies explicitly set flags over the loaded configuration
func applyExportFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		appConfig.IO.OutputDir = outputDir
	}
	if flags.Changed("output") {
		appConfig.IO.OutputFile = outputFile
	}
	if flags.Changed("format") {
		appConfig.IO.OutputFormat = outputFormat
	}
	return appConfig.Validate()
}

// applyFetchFlags copies the fetch related flags shared by export and serve
func applyFetchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		appConfig.Scraper.Source = source
	}
	if flags.Changed("file") {
		appConfig.IO.InputFile = inputFile
		if !flags.Changed("source") {
			appConfig.Scraper.Source = config.SourceFile
		}
	}
	if flags.Changed("timeout") {
		appConfig.Scraper.Timeout = timeout
	}
	if flags.Changed("headless") {
		appConfig.Browser.Headless = headless
	}
	if flags.Changed("proxy") {
		appConfig.Proxies.Enabled = true
		appConfig.Proxies.List = proxies
	}
	if flags.Changed("force") {
		appConfig.Export.Force = force
	}
}

func newRunner() (*export.Runner, *metrics.Metrics, error) {
	fetcher, err := scraper.New(appConfig, logger)
	if err != nil {
		return nil, nil, err
	}
	m := metrics.New()
	runner, err := export.NewRunner(appConfig, fetcher, m, logger)
	if err != nil {
		return nil, nil, err
	}
	return runner, m, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
