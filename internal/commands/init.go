package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/sepadd/internal/config"
	"github.com/cleared-dev/sepadd/internal/gitops"
)

type initOptions struct {
	collectionDate string
	creditorID     string
	creditorName   string
	creditorIBAN   string
	git            bool
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new sepadd project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.collectionDate, "collection-date", "", "default requested collection date, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("collection-date")
	cmd.Flags().StringVar(&opts.creditorID, "creditor-id", "", "default creditor scheme id")
	cmd.Flags().StringVar(&opts.creditorName, "creditor-name", "", "default creditor name")
	cmd.Flags().StringVar(&opts.creditorIBAN, "creditor-iban", "", "default creditor IBAN")
	cmd.Flags().BoolVar(&opts.git, "git", false, "initialize a git repository and commit every change")

	return cmd
}

func runInit(out io.Writer, dir string, opts initOptions) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()
	cfg.SetRoot(dir)
	cfg.RequestedCollectionDate = opts.collectionDate
	cfg.Creditor = config.CreditorConfig{
		ID:   opts.creditorID,
		Name: opts.creditorName,
		IBAN: opts.creditorIBAN,
	}
	cfg.Git.AutoCommit = opts.git
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create directory structure.
	for _, d := range []string{cfg.SaveDir(), cfg.ImportDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
		if err := os.WriteFile(filepath.Join(d, ".gitkeep"), []byte{}, 0o644); err != nil {
			return fmt.Errorf("writing .gitkeep: %w", err)
		}
	}

	// Write sepadd.yaml.
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if !opts.git {
		fmt.Fprintf(out, "Initialized sepadd project at %s\n", dir)
		return nil
	}

	if !gitops.IsRepo(dir) {
		if err := gitops.Init(dir); err != nil {
			return err
		}
	}
	author := gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
	hash, err := gitops.CommitPaths(dir, "init: sepadd project", author, config.FileName, cfg.SavePath, cfg.ImportPath)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized sepadd project at %s (%s)\n", dir, hash)
	return nil
}
