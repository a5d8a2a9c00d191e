package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emurenMRz/mailmark/internal/config"
	"github.com/emurenMRz/mailmark/internal/firebase"
	"github.com/emurenMRz/mailmark/internal/logging"
	"github.com/emurenMRz/mailmark/internal/mailbox"
	"github.com/emurenMRz/mailmark/internal/metrics"
	"github.com/emurenMRz/mailmark/internal/search"
	"github.com/emurenMRz/mailmark/internal/server"
	"github.com/emurenMRz/mailmark/internal/store"
)

const pruneInterval = time.Hour

var (
	configPath string
	addr       string
	mailboxDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "mailmarkd",
	Short: "Serve the mailmark API and web client",
	Long: `mailmarkd serves the JSON API used by the web client: field validation,
address search over the configured engines, and per-user bookmarks kept in
the remote store. With a mailbox directory configured, the addresses in its
mbox files become searchable too.`,
	SilenceUsage: true,
	RunE:         runServer,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "mailmark.yaml", "configuration file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.Flags().StringVar(&mailboxDir, "path", "", "directory of mbox files to search (overrides search.mailbox_dir)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(initConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if mailboxDir != "" {
		cfg.Search.MailboxDir = mailboxDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sessions, err := store.NewSQLiteStore(cfg.Session.DatabasePath)
	if err != nil {
		return err
	}
	defer sessions.Close()

	engines, err := search.ParseEngines(cfg.Search.Engines)
	if err != nil {
		return err
	}
	var dir *mailbox.Dir
	if cfg.Search.MailboxDir != "" {
		dir = mailbox.NewDir(cfg.Search.MailboxDir, logger.Named("mailbox"))
		engines = append(engines, search.Mailbox)
	}

	srv := server.New(server.Options{
		Config:    cfg,
		Backend:   firebase.New(cfg.Firebase, &http.Client{Timeout: cfg.GetFirebaseTimeout()}, logger.Named("firebase")),
		Sessions:  sessions,
		Search:    search.NewService(search.NewGenerator(nil), dir, engines, cfg.Search.MaxCount, logger.Named("search")),
		Mailboxes: dir,
		Logger:    logger.Named("http"),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go pruneSessions(ctx, sessions, cfg.GetSessionTTL(), logger)

	return srv.ListenAndServe(ctx)
}

// pruneSessions drops sessions older than ttl until ctx is done.
func pruneSessions(ctx context.Context, sessions *store.SQLiteStore, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		pruneOnce(ctx, sessions, time.Now().Add(-ttl), logger)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pruneOnce(ctx context.Context, sessions *store.SQLiteStore, cutoff time.Time, logger *zap.Logger) {
	n, err := sessions.DeleteExpired(ctx, cutoff)
	switch {
	case err != nil && ctx.Err() == nil:
		logger.Warn("prune sessions", zap.Error(err))
	case n > 0:
		logger.Info("pruned expired sessions", zap.Int64("count", n))
	}

	count, err := sessions.CountSessions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("count sessions", zap.Error(err))
		}
		return
	}
	metrics.ActiveSessions(count)
}
