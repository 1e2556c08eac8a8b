package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tapclick/internal/dbus"
)

// focusCmd represents the focus command group.
var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Duck or restore tapclickd's audio focus",
	Long: `Control the audio focus tapclickd derives from the session bus.

Use 'tapclick focus duck' when another stream should have the foreground;
clicks are rejected and the background tone stops until
'tapclick focus restore'. 'tapclick focus state' shows the current focus.`,
	RunE: focusStateRun,
}

var focusDuckCmd = &cobra.Command{
	Use:   "duck",
	Short: "Give up focus transiently",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			return c.Duck(ctx)
		})
	},
}

var focusRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Take focus back after duck",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			return c.Restore(ctx)
		})
	},
}

var focusStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the focus change the broker currently derives",
	RunE:  focusStateRun,
}

func init() {
	focusCmd.AddCommand(focusDuckCmd)
	focusCmd.AddCommand(focusRestoreCmd)
	focusCmd.AddCommand(focusStateCmd)

	rootCmd.AddCommand(focusCmd)
}

func focusStateRun(cmd *cobra.Command, args []string) error {
	return withClient(func(ctx context.Context, c *dbus.Client) error {
		state, err := c.FocusState(ctx)
		if err != nil {
			return err
		}
		fmt.Println(state)
		return nil
	})
}
