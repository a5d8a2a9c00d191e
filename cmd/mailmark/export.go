package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emurenMRz/mailmark/internal/config"
	"github.com/emurenMRz/mailmark/internal/firebase"
	"github.com/emurenMRz/mailmark/internal/mailbox"
	"github.com/emurenMRz/mailmark/internal/record"
)

func (c *cli) exportCmd() *cobra.Command {
	var (
		email    string
		password string
		outPath  string
		limit    int
		appendTo bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Sign in and write your bookmarks to an mbox file",
		Long: `Signs in to the remote store configured in --config and writes the stored
bookmarks to --out, one message per record. With --append the messages are
added to the end of an existing mbox file instead of replacing it.

The password may also be given in MAILMARK_PASSWORD.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("MAILMARK_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}

			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client := firebase.New(cfg.Firebase, &http.Client{Timeout: cfg.GetFirebaseTimeout()}, c.logger.Named("firebase"))

			acct, err := client.SignIn(ctx, email, password)
			if err != nil {
				return fmt.Errorf("sign in: %w", err)
			}
			coll, err := client.ListEmails(ctx, acct.Token, acct.UserID)
			if err != nil {
				return fmt.Errorf("load bookmarks: %w", err)
			}
			records, err := record.Convert(record.Payload{Records: coll, Limit: limit})
			if errors.Is(err, record.ErrEmptyCollection) {
				fmt.Fprintln(cmd.ErrOrStderr(), "no bookmarks to export")
				return nil
			}
			if err != nil {
				return err
			}

			if err := writeMbox(outPath, records, appendTo); err != nil {
				return err
			}
			c.logger.Info("exported bookmarks", zap.Int("count", len(records)), zap.String("out", outPath))
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d bookmarks to %s\n", len(records), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVarP(&outPath, "out", "o", "bookmarks.mbox", "output mbox file")
	cmd.Flags().IntVar(&limit, "limit", 0, "export at most this many bookmarks (0 for all)")
	cmd.Flags().BoolVar(&appendTo, "append", false, "append to the output file")
	return cmd
}

// writeMbox replaces path with the exported records, or appends to it.
func writeMbox(path string, records []record.Record, appendTo bool) error {
	if !appendTo {
		return mailbox.ExportFile(path, records)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o660)
	if err != nil {
		return fmt.Errorf("cannot open mbox: %w", err)
	}
	if err := mailbox.Export(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
