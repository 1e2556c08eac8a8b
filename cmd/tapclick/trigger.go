package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tapclick/internal/dbus"
)

var triggerOpts struct {
	quiet bool // Suppress output, return exit code only
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Play a click through tapclickd",
	Long: `Ask the running tapclickd to play a click.

Prints "accepted" or "rejected". Rejected triggers exit with status 1, so
scripts can react to a missing stream or lost focus. The reason for the last
rejection is shown by 'tapclick status'.`,
	RunE: runTrigger,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Ask tapclickd to verify the stream now",
	Long: `Ask the running tapclickd to check stream health immediately, restarting
the stream if it is not healthy. Normally the watchdog does this on its own.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			return c.EnsureHealthy(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(checkCmd)

	triggerCmd.Flags().BoolVarP(&triggerOpts.quiet, "quiet", "q", false,
		"Suppress output, return exit code only (0=accepted, 1=rejected)")
}

func runTrigger(cmd *cobra.Command, args []string) error {
	var accepted bool
	err := withClient(func(ctx context.Context, c *dbus.Client) error {
		var err error
		accepted, err = c.Trigger(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if !triggerOpts.quiet {
		if accepted {
			fmt.Println("accepted")
		} else {
			fmt.Println("rejected")
		}
	}
	if !accepted {
		os.Exit(1)
	}
	return nil
}
