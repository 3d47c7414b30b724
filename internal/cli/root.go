package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"thde.io/nationbuilder"
	"thde.io/nationbuilder/internal/config"
)

// app holds the state shared by all commands
type app struct {
	cfgFile string
	output  string

	cfg    *config.Config
	logger zerolog.Logger
	client *nationbuilder.Client

	out    io.Writer
	errOut io.Writer
}

// Execute runs the command line and exits non-zero on failure.
func Execute(version string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCmd(os.Stdout, os.Stderr)
	root.Version = version

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree writing results to out and logs to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "nationbuilder",
		Short: "Query and update a NationBuilder nation",
		Long: `nationbuilder is a CLI for the NationBuilder API. It lists, searches and
updates people and donations, manages webhooks and receives webhook deliveries.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initializeApp,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "", "output format: table or json")

	rootCmd.AddCommand(
		a.peopleCmd(),
		a.donationsCmd(),
		a.webhooksCmd(),
		a.authCmd(),
	)

	return rootCmd
}

// initializeApp loads the configuration and creates the client
func (a *app) initializeApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	if cmd.Flags().Changed("output") {
		switch a.output {
		case "table", "json":
			a.cfg.Output.Format = a.output
		default:
			return fmt.Errorf("invalid output format: %s", a.output)
		}
	}

	a.logger = setupLogger(cfg.Logging, a.errOut)

	a.client, err = newClient(cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

// newClient creates the API client from the configuration
func newClient(cfg *config.Config, logger zerolog.Logger) (*nationbuilder.Client, error) {
	opts := []nationbuilder.ClientOption{
		nationbuilder.WithLogger(logger),
		nationbuilder.WithMaxRetries(cfg.Client.MaxRetries),
		nationbuilder.WithConcurrency(cfg.Client.Concurrency),
	}

	if cfg.Nation.BaseURL != "" {
		u, err := url.Parse(cfg.Nation.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid nation.base_url: %w", err)
		}
		opts = append(opts, nationbuilder.WithBaseURL(u))
	}
	if cfg.Client.UserAgent != "" {
		opts = append(opts, nationbuilder.WithUserAgent(cfg.Client.UserAgent))
	}
	if cfg.OAuth.ClientID != "" {
		opts = append(opts, nationbuilder.WithOAuth(cfg.OAuth.ClientID, cfg.OAuth.ClientSecret, cfg.OAuth.RedirectURI))
	}

	expiresAt, err := cfg.OAuth.Expiry()
	if err != nil {
		return nil, err
	}
	opts = append(opts, nationbuilder.WithToken(nationbuilder.Token{
		AccessToken:  cfg.Nation.AccessToken,
		RefreshToken: cfg.OAuth.RefreshToken,
		ExpiresAt:    expiresAt,
	}))

	return nationbuilder.New(cfg.Nation.Slug, opts...), nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	if cfg.Format == "json" {
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(w),
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
