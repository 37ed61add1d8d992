package commands

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/sepadd/internal/batchfile"
	"github.com/cleared-dev/sepadd/internal/history"
	"github.com/cleared-dev/sepadd/internal/importer"
)

func newSaveCommand(configPath *string) *cobra.Command {
	var replace, generateID bool

	cmd := &cobra.Command{
		Use:   "save <batch.yaml>",
		Short: "Generate and store the pain.008 document for a batch description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.sync()

			p, err := batchfile.ReadFile(args[0], batchfile.Options{GenerateID: generateID})
			if err != nil {
				return err
			}
			doc, err := a.store.Save(p, replace)
			if err != nil {
				return err
			}

			saved := doc.PaymentInformation()
			summary := fmt.Sprintf("%d transactions, %s EUR", saved.NumberOfTransactions(), saved.ControlSum().StringFixed(2))
			a.record(history.ActionSave, saved.ID(), summary)
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: %s\n", saved.ID(), summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite an existing batch with the same id")
	cmd.Flags().BoolVar(&generateID, "generate-id", false, "ignore the id in the file and generate one")

	return cmd
}

func newShowCommand(configPath *string) *cobra.Command {
	var raw, asCSV bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.sync()

			doc, err := a.store.Load(args[0])
			if err != nil {
				return err
			}
			if raw {
				data, err := os.ReadFile(doc.Source())
				if err != nil {
					return fmt.Errorf("reading %s: %w", doc.Source(), err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if asCSV {
				return batchfile.WriteTransfers(cmd.OutOrStdout(), doc.PaymentInformation().Transfers())
			}
			printBatch(cmd.OutOrStdout(), doc)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "xml", false, "print the stored document")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "print the transfers as CSV, in the transfers_file format")
	cmd.MarkFlagsMutuallyExclusive("xml", "csv")

	return cmd
}

func newListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored batch ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.sync()

			var ids []string
			for id, err := range a.store.All() {
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			slices.Sort(ids)
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newRemoveCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a stored batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.sync()

			if err := a.store.Remove(args[0]); err != nil {
				return err
			}
			a.record(history.ActionRemove, args[0], "")
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newParseCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file.xml>",
		Short: "Parse and validate a pain.008 document without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.sync()

			doc, err := a.parser.ParseFile(args[0])
			if err != nil {
				return err
			}
			printBatch(cmd.OutOrStdout(), doc)
			return nil
		},
	}
}

func newImportCommand(configPath *string) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import pain.008 documents from the inbox directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.sync()

			im := &importer.Importer{Parser: a.parser, Store: a.store, Logger: a.logger.Named("import")}
			results, err := im.Run(a.cfg.ImportDir(), replace)
			if err != nil {
				return err
			}

			var failed []error
			imported := 0
			for _, r := range results {
				if r.Err != nil {
					failed = append(failed, fmt.Errorf("%s: %w", r.File.Name, r.Err))
					fmt.Fprintf(cmd.OutOrStdout(), "FAILED   %s: %v\n", r.File.Name, r.Err)
					continue
				}
				imported++
				a.record(history.ActionImport, r.ID, "from "+r.File.Name)
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s -> %s\n", r.File.Name, r.ID)
			}
			a.logger.Debug("import finished", zap.Int("imported", imported), zap.Int("failed", len(failed)))
			return errors.Join(failed...)
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite existing batches with the same id")

	return cmd
}

func newHistoryCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the record of saved, removed and imported batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.sync()

			entries, err := history.Read(a.cfg.HistoryFile())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action, e.BatchID, e.Details, e.CommitHash)
			}
			return tw.Flush()
		},
	}
}
