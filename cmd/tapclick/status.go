package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tapclick/internal/dbus"
	"github.com/jmylchreest/tapclick/internal/output"
	"github.com/jmylchreest/tapclick/internal/supervisor"
)

var statusOpts struct {
	format   string
	template string
	watch    time.Duration
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tapclickd supervisor status",
	Long: `Show the state of the running tapclickd: engine and focus state,
health, trigger counters and the last rejection reason.

Formats: text (default), json, yaml and waybar. The waybar format fits a
Waybar custom module:

  "custom/tapclick": {
    "exec": "tapclick status --format waybar --watch 1s",
    "return-type": "json",
    "on-click": "tapclick trigger"
  }

A custom Go template can be given for text output, for example:

  tapclick status --template '{{.Engine}} {{comma .TriggersAccepted}}'`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", "text",
		"Output format (text, json, yaml, waybar)")
	statusCmd.Flags().StringVar(&statusOpts.template, "template", "",
		"Custom Go template for text output")
	statusCmd.Flags().DurationVarP(&statusOpts.watch, "watch", "w", 0,
		"Print status repeatedly at this interval until interrupted")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOpts.format)
	if err != nil {
		return err
	}
	opts := output.DefaultFormatterOptions()
	opts.Template = statusOpts.template
	opts.Compact = statusOpts.watch > 0
	formatter := output.NewFormatter(format, opts)

	client, err := dbus.Connect()
	if err != nil {
		return err
	}
	defer client.Close()

	fetch := func(parent context.Context) (supervisor.Status, error) {
		ctx, cancel := context.WithTimeout(parent, globalOpts.timeout)
		defer cancel()
		return client.Status(ctx)
	}

	if statusOpts.watch <= 0 {
		st, err := fetch(context.Background())
		if err != nil {
			return err
		}
		return formatter.Format(os.Stdout, st)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(statusOpts.watch)
	defer ticker.Stop()
	for {
		st, err := fetch(ctx)
		if err != nil {
			logger.Warn("failed to fetch status", "error", err)
			st = supervisor.Status{}
		}
		if err := formatter.Format(os.Stdout, st); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
