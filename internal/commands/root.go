package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cleared-dev/sepadd/internal/buildinfo"
	"github.com/cleared-dev/sepadd/internal/codec"
	"github.com/cleared-dev/sepadd/internal/config"
	"github.com/cleared-dev/sepadd/internal/gitops"
	"github.com/cleared-dev/sepadd/internal/history"
	"github.com/cleared-dev/sepadd/internal/logging"
	"github.com/cleared-dev/sepadd/internal/store"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "sepadd",
		Short:   "SEPA direct debit batch store",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.FileName, "path to "+config.FileName)

	rootCmd.AddCommand(
		newInitCommand(),
		newSaveCommand(&configPath),
		newShowCommand(&configPath),
		newListCommand(&configPath),
		newRemoveCommand(&configPath),
		newParseCommand(&configPath),
		newImportCommand(&configPath),
		newHistoryCommand(&configPath),
	)

	return rootCmd
}

// app is what every command but init works with.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	parser *codec.Parser
	store  store.Adapter

	// In debug mode store metrics are collected in registry and written to
	// logOut in the Prometheus text format when the command finishes.
	registry *prometheus.Registry
	logOut   io.Writer
}

// openApp loads and validates the configuration, then builds the logger and
// the store. Configuration errors surface here, before any store exists.
func openApp(configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	defaults, err := cfg.Defaults()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if cfg.Debug {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format, zapcore.AddSync(logOut))
	if err != nil {
		return nil, err
	}

	var registry *prometheus.Registry
	opts := store.Options{
		Adapter:   cfg.Adapter,
		Dir:       cfg.SaveDir(),
		Defaults:  defaults,
		Debug:     cfg.Debug,
		CacheSize: cfg.Cache.Size,
		Logger:    logger,
	}
	if cfg.Debug {
		registry = prometheus.NewRegistry()
		opts.Registerer = registry
	}
	st, err := store.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		parser:   codec.NewParser(cfg.Debug, logger.Named("codec")),
		store:    st,
		registry: registry,
		logOut:   logOut,
	}, nil
}

// record notes a store change in the history file and, when git.auto_commit
// is set, commits it. Failures are logged, not returned: the store change
// already happened.
func (a *app) record(action, batchID, details string) {
	e := history.Entry{
		Timestamp:  time.Now(),
		Action:     action,
		BatchID:    batchID,
		Details:    details,
		CommitHash: a.commit(action + ": " + batchID),
	}
	if path := a.cfg.HistoryFile(); path != "" {
		if err := history.Append(path, e); err != nil {
			a.logger.Warn("writing history failed", zap.Error(err))
		}
	}
}

// commit commits the save and import directories and the history file.
// It returns the short hash, or "" when nothing was committed.
func (a *app) commit(message string) string {
	if !a.cfg.Git.AutoCommit {
		return ""
	}
	root := a.cfg.Root()
	if !gitops.IsRepo(root) {
		a.logger.Warn("auto_commit is set but project is not a git repository", zap.String("dir", root))
		return ""
	}

	var paths []string
	for _, p := range []string{a.cfg.SaveDir(), a.cfg.ImportDir(), a.cfg.HistoryFile()} {
		if p == "" {
			continue
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, rel)
		}
	}
	if len(paths) == 0 {
		return ""
	}

	author := gitops.Author{Name: a.cfg.Git.AuthorName, Email: a.cfg.Git.AuthorEmail}
	hash, err := gitops.CommitPaths(root, message, author, paths...)
	if err != nil {
		a.logger.Warn("git commit failed", zap.Error(err))
		return ""
	}
	if hash != "" {
		a.logger.Info("committed", zap.String("hash", hash), zap.String("message", message))
	}
	return hash
}

func (a *app) sync() {
	_ = a.logger.Sync()
	if a.registry != nil {
		a.dumpMetrics()
	}
}

func (a *app) dumpMetrics() {
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn("gathering metrics failed", zap.Error(err))
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(a.logOut, mf); err != nil {
			a.logger.Warn("writing metrics failed", zap.Error(err))
			return
		}
	}
}
