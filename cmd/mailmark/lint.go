package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emurenMRz/mailmark/internal/mailbox"
)

func (c *cli) lintCmd() *cobra.Command {
	var (
		dirPath string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "lint MAILBOX",
		Short: "Report messages with missing or malformed headers",
		Long: `Checks each message of MAILBOX for a parseable From and Date and a
well-formed Message-ID, and lists messages marked deleted. Exits with
status 1 when any issue is found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := mailbox.NewDir(dirPath, c.logger.Named("mailbox"))
			issues, err := dir.Lint(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if issues == nil {
					issues = []mailbox.Issue{}
				}
				if err := json.NewEncoder(out).Encode(issues); err != nil {
					return err
				}
			} else if len(issues) == 0 {
				fmt.Fprintln(out, "No header problems found.")
			} else {
				for _, i := range issues {
					fmt.Fprintln(out, i)
				}
			}

			if len(issues) > 0 {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dirPath, "path", "p", ".", "directory of mbox files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print issues as JSON")
	return cmd
}
