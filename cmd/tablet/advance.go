package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
)

func NewAdvanceCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		status string
		units  int
	)
	cmd := &cobra.Command{
		Use:   "advance <item-id>",
		Short: "Move an item (or some of its units) one step forward",
		Long: `Move an item one step forward: pending -> ready -> delivered.
With --units only that many units move; the rest stay where they are.

Examples:
  tablet advance 3f1c... --status pronto
  tablet advance 3f1c... --status ready --units 1`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := fulfillment.ParseStatus(status)
			if err != nil {
				return err
			}
			if units < 0 {
				return fmt.Errorf("--units must not be negative")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := rootOpts.fetcher().Advance(ctx, args[0], next, units); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], next)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "ready", "target status")
	cmd.Flags().IntVar(&units, "units", 0, "units to move (0 = all)")
	return cmd
}
