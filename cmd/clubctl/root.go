package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"clubhub/client/internal/apiclient"
	"clubhub/client/internal/authclient"
	"clubhub/client/internal/config"
	"clubhub/client/internal/credstore"
	"clubhub/client/internal/httpclient"
	"clubhub/client/internal/log"
	"clubhub/client/internal/metrics"
	"clubhub/client/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "clubctl",
	Short: "Sign in to the club directory and browse clubs and events",
	Long: `clubctl keeps a session for the university club directory. The
session is stored in the configured credential store and restored on every
run, so a sign-in survives until logout or a failed token refresh.`,
	SilenceUsage: true,
}

var (
	configFile string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./clubhub.yaml or $HOME/.clubhub/clubhub.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}

// env is what every command works with: a bootstrapped session manager
// and a directory client bound to it.
type env struct {
	cfg      *config.AppConfig
	logger   zerolog.Logger
	registry *prometheus.Registry
	sessions *session.Manager
	dir      *apiclient.Client

	closeStore func()
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}

	logger := log.NewWithWriter(cmd.ErrOrStderr(), cfg.Environment)
	if !verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}

	ctx := cmd.Context()
	store, closeStore, err := credstore.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	registry := prometheus.NewRegistry()
	api := httpclient.New(cfg.API, log.Component(logger, "api"))
	sessions := session.NewManager(
		authclient.New(api),
		store,
		session.WithLogger(log.Component(logger, "session")),
		session.WithStoreKey(cfg.Session.StoreKey),
		session.WithRefreshLeeway(cfg.Session.RefreshLeeway),
		session.WithMetrics(metrics.NewSession(registry)),
	)
	sessions.Bootstrap(ctx)

	return &env{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		sessions:   sessions,
		dir:        apiclient.New(api, sessions, log.Component(logger, "directory")),
		closeStore: closeStore,
	}, nil
}

func (e *env) Close() {
	if err := e.sessions.Close(); err != nil {
		e.logger.Warn().Err(err).Msg("session close")
	}
	e.closeStore()
}

// withEnv adapts a command body that needs an env into a cobra RunE.
func withEnv(run func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		return run(cmd.Context(), cmd, e, args)
	}
}

// prompt reads one line from in, printing label first.
func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}
