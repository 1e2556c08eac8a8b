package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tapclick/internal/engine"
	"github.com/jmylchreest/tapclick/internal/supervisor"
	"github.com/jmylchreest/tapclick/internal/tui"
)

var playOpts struct {
	flash        time.Duration
	noBackground bool
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run a supervisor in-process with an interactive pad",
	Long: `Open the audio stream in this process and show a pad that clicks on
space. Focus is always granted; no bus name is claimed, so this works next to
a running tapclickd or without one.

Key bindings:
  space, enter  Click
  r             Check the stream now
  ?             Show help
  q             Quit`,
	Annotations: map[string]string{needsConfig: ""},
	RunE:        runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().DurationVar(&playOpts.flash, "flash", tui.DefaultFlash,
		"How long the pad lights after an accepted click")
	playCmd.Flags().BoolVar(&playOpts.noBackground, "no-background", false,
		"Do not play the background tone")
}

func runPlay(cmd *cobra.Command, args []string) error {
	scfg := supervisor.FromConfig(cfg)
	if playOpts.noBackground {
		scfg.BackgroundAudio = false
	}

	sup, err := supervisor.New(scfg, supervisor.Dependencies{
		Engine: engine.NewMixer(cfg.Audio, logger),
		Focus:  supervisor.NewStaticFocus(true),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}
	if err := sup.Start(); err != nil {
		return fmt.Errorf("failed to start supervisor: %w", err)
	}

	runErr := tui.Run(tui.RunOptions{
		Source:    sup,
		Flash:     playOpts.flash,
		Subscribe: sup.SetFeedbackHook,
	})

	select {
	case err := <-sup.Shutdown():
		if err != nil {
			logger.Warn("supervisor shutdown incomplete", "error", err)
		}
	case <-time.After(cfg.Timing.DrainTimeout.Duration() + time.Second):
		logger.Warn("supervisor shutdown timed out")
	}

	return runErr
}
