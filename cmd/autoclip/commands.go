package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kikiluvv/autoclip/internal/api"
	"github.com/kikiluvv/autoclip/internal/config"
	"github.com/kikiluvv/autoclip/internal/describe"
	"github.com/kikiluvv/autoclip/internal/journal"
	"github.com/kikiluvv/autoclip/internal/logging"
	"github.com/kikiluvv/autoclip/internal/perspective"
	"github.com/kikiluvv/autoclip/internal/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	runPerspectives []string
	runAll          bool
	runForce        bool
	runForceScript  bool
	runMode         string
	runsLimit       int
)

func init() {
	runCmd.Flags().StringSliceVarP(&runPerspectives, "perspective", "p", nil, "perspective to generate (repeatable, default: default)")
	runCmd.Flags().BoolVar(&runAll, "all", false, "generate every registered perspective")
	runCmd.Flags().BoolVar(&runForce, "force", false, "redo segmentation and description")
	runCmd.Flags().BoolVar(&runForceScript, "force-script", false, "regenerate cached scripts")
	runCmd.Flags().StringVar(&runMode, "mode", "", "describe mode: frame or batch (default from config)")

	prepareCmd.Flags().BoolVar(&runForce, "force", false, "redo segmentation and description")
	prepareCmd.Flags().StringVar(&runMode, "mode", "", "describe mode: frame or batch (default from config)")

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to list")
}

func parseMode() (describe.Mode, error) {
	if runMode == "" {
		return "", nil
	}
	return describe.ParseMode(runMode)
}

var runCmd = &cobra.Command{
	Use:   "run [input video]",
	Short: "Generate highlight videos for one or more perspectives",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		mode, err := parseMode()
		if err != nil {
			return err
		}

		pipe, err := pipeline.Open(log.Logger, cfg)
		if err != nil {
			return err
		}
		defer pipe.Close()

		results, err := pipe.Run(cmd.Context(), args[0], pipeline.RunOptions{
			Perspectives:      runPerspectives,
			All:               runAll,
			Force:             runForce,
			RegenerateScripts: runForceScript,
			Mode:              mode,
		})
		if err != nil {
			return err
		}

		log.Info().Int("videos", len(results)).Msg("run complete")
		return printJSON(results)
	},
}

var prepareCmd = &cobra.Command{
	Use:   "prepare [input video]",
	Short: "Segment and describe a video without scripting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		mode, err := parseMode()
		if err != nil {
			return err
		}

		pipe, err := pipeline.Open(log.Logger, cfg)
		if err != nil {
			return err
		}
		defer pipe.Close()

		an, err := pipe.Prepare(cmd.Context(), args[0], pipeline.PrepareOptions{Force: runForce, Mode: mode})
		if err != nil {
			return err
		}

		log.Info().
			Str("asset", an.Asset.ID).
			Int("segments", len(an.Descriptors)).
			Bool("cached", an.Cached).
			Msg("preparation complete")
		fmt.Println(an.DescriptorPath)
		return nil
	},
}

var perspectivesCmd = &cobra.Command{
	Use:   "perspectives",
	Short: "List the available perspectives",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		for _, k := range perspective.All() {
			fmt.Printf("%-14s %s\n", k, perspective.Label(k, cfg.Language))
		}
		return nil
	},
}

func openJournal(cfg *config.Config) (*journal.Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, errors.New("journal is disabled in config")
	}
	return journal.Open(cfg.Journal.Path, log.Logger)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		defer j.Close()

		runs, err := j.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		for i, r := range runs {
			full, err := j.GetRun(cmd.Context(), r.ID)
			if err == nil && full != nil {
				runs[i] = full
			}
		}
		return printJSON(runs)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run journal over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		j, err := openJournal(cfg)
		if err != nil {
			return err
		}
		defer j.Close()

		srv := api.NewServer(api.ServerConfig{
			Addr:     cfg.Server.Addr,
			Store:    j,
			Language: cfg.Language,
			Logger:   logging.WithComponent(log.Logger, "cli"),
		})

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}
