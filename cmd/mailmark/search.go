package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/emurenMRz/mailmark/internal/mailbox"
	"github.com/emurenMRz/mailmark/internal/search"
)

func (c *cli) searchCmd() *cobra.Command {
	var (
		engineName string
		domain     string
		count      int
		dirPath    string
	)
	cmd := &cobra.Command{
		Use:   "search KEY",
		Short: "Search addresses for KEY",
		Long: `Runs a search without the server. The placeholder engines generate
sample addresses; the mailbox engine scans the mbox files under --path.
--engine all queries every engine available.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir *mailbox.Dir
			if dirPath != "" {
				dir = mailbox.NewDir(dirPath, c.logger.Named("mailbox"))
			}
			svc := search.NewService(nil, dir, availableEngines(dir), max(count, 1), c.logger.Named("search"))

			q := search.Query{Key: args[0], Domain: domain, Count: count}
			var err error
			var engines []search.Engine
			if engineName != "all" {
				q.Engine, err = search.ParseEngine(engineName)
				if err != nil {
					return err
				}
				engines = []search.Engine{q.Engine}
			}
			records, err := svc.SearchAll(cmd.Context(), q, engines)
			if errors.Is(err, search.ErrEngineDisabled) {
				return fmt.Errorf("%w (the mailbox engine needs --path)", err)
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.SearchEngine, r.Address, r.Link, r.CreationDate.Format(time.DateOnly))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&engineName, "engine", "e", "google", "engine name or all")
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "restrict results to this domain")
	cmd.Flags().IntVarP(&count, "count", "n", 10, "results per engine")
	cmd.Flags().StringVarP(&dirPath, "path", "p", "", "directory of mbox files for the mailbox engine")
	return cmd
}

// availableEngines lists the simulated engines, plus the mailbox engine when
// a mailbox directory was given.
func availableEngines(dir *mailbox.Dir) []search.Engine {
	var engines []search.Engine
	for _, e := range search.Engines() {
		if e.Simulated() || dir != nil {
			engines = append(engines, e)
		}
	}
	return engines
}

func (c *cli) addressesCmd() *cobra.Command {
	var dirPath string
	cmd := &cobra.Command{
		Use:   "addresses [MAILBOX]",
		Short: "List mailboxes, or the addresses found in one mailbox",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := mailbox.NewDir(dirPath, c.logger.Named("mailbox"))
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				names, err := dir.Mailboxes()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(out, n)
				}
				return nil
			}

			addrs, err := dir.Addresses(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, a := range addrs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.Index, a.Address, a.Name, a.Subject)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&dirPath, "path", "p", ".", "directory of mbox files")
	return cmd
}
