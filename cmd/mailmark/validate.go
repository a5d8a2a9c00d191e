package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emurenMRz/mailmark/internal/paging"
	"github.com/emurenMRz/mailmark/internal/validate"
)

func (c *cli) validateCmd() *cobra.Command {
	var (
		kindName string
		multi    bool
	)
	kinds := make([]string, 0, len(validate.Kinds()))
	for _, k := range validate.Kinds() {
		kinds = append(kinds, k.String())
	}

	cmd := &cobra.Command{
		Use:   "validate VALUE...",
		Short: "Check values with one of the field validators",
		Long: `Checks each VALUE with the validator named by --kind and prints the result
as JSON. With --multi every VALUE is treated as a comma-separated list.
Exits with status 1 when any value is invalid.

Kinds: ` + strings.Join(kinds, ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := validate.ParseKind(kindName)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			failed := false
			for _, v := range args {
				res := kind.Check(v, multi)
				if !res.Valid {
					failed = true
				}
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
			if failed {
				c.logger.Debug("validation failed")
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindName, "kind", "k", "email", "validator to use")
	cmd.Flags().BoolVarP(&multi, "multi", "m", false, "treat values as comma-separated lists")
	return cmd
}

func (c *cli) pageSizesCmd() *cobra.Command {
	var (
		total int
		sizes []int
	)
	cmd := &cobra.Command{
		Use:   "pagesizes",
		Short: "Print the page sizes offered for a result count",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if total < 0 {
				return fmt.Errorf("--total must not be negative")
			}
			candidates := slices.Clone(sizes)
			slices.Sort(candidates)
			opts := paging.SizeOptions(candidates, total)
			out := make([]string, 0, len(opts))
			for _, o := range opts {
				out = append(out, strconv.Itoa(o))
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(out, " "))
			return nil
		},
	}
	cmd.Flags().IntVarP(&total, "total", "n", 0, "number of results")
	cmd.Flags().IntSliceVar(&sizes, "sizes", paging.DefaultSizes, "candidate page sizes")
	return cmd
}
