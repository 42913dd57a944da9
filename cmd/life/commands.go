// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/AleutianLife/pkg/logging"
	"github.com/AleutianAI/AleutianLife/services/life"
	"github.com/AleutianAI/AleutianLife/services/life/config"
	"github.com/AleutianAI/AleutianLife/services/life/engine"
	"github.com/spf13/cobra"
)

// engineFlags are shared by step, advance and final.
type engineFlags struct {
	file    string
	workers int
	text    bool
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Board file (.json, .yaml, .txt), or - for JSON on stdin")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Worker goroutines for large boards (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&f.text, "text", false, "Print the board as text instead of JSON")
	_ = cmd.MarkFlagRequired("file")
}

func (f *engineFlags) stepper() engine.Stepper {
	s := engine.DefaultStepper()
	s.Workers = f.workers
	return s
}

// gridOutput is the JSON printed by step and advance.
type gridOutput struct {
	State      [][]bool `json:"state"`
	Rows       int      `json:"rows"`
	Cols       int      `json:"cols"`
	Population int      `json:"population"`
}

// finalOutput is the JSON printed by final.
type finalOutput struct {
	State      [][]bool `json:"state"`
	Attempts   int      `json:"attempts"`
	Period     int      `json:"period"`
	CycleStart int      `json:"cycle_start"`
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "life",
		Short: "Conway's Game of Life board server and engine",
		Long: `life stores Game of Life boards and computes their future generations.

Run "life serve" for the HTTP API, or use step, advance and final to run the
engine directly on a board file.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd(), newConfigCmd(), newStepCmd(), newAdvanceCmd(), newFinalCmd())
	return rootCmd
}

// =============================================================================
// serve
// =============================================================================

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		storeType  string
		dataDir    string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP board server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("store") {
				cfg.Store.Type = storeType
			}
			if flags.Changed("data-dir") {
				cfg.Store.DataDir = dataDir
			}
			if flags.Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Close()
			logger.SetDefault()

			svc, err := life.New(cfg, &life.Options{Logger: logger.Slog()})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return svc.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port")
	cmd.Flags().StringVar(&storeType, "store", "", "Board store: badger or memory")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Badger data directory")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	return cmd
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format := logging.FormatAuto
	if cfg.JSON {
		format = logging.FormatJSON
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Dir,
		Service: "life",
		Format:  format,
	})
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the server configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", args[0])
			return nil
		},
	}

	configCmd.AddCommand(initCmd)
	return configCmd
}

// =============================================================================
// step / advance / final
// =============================================================================

func newStepCmd() *cobra.Command {
	var flags engineFlags

	cmd := &cobra.Command{
		Use:   "step",
		Short: "Print the next generation of a board file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGrid(flags.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return printGrid(cmd.OutOrStdout(), flags.stepper().Step(g), flags.text)
		},
	}
	flags.register(cmd)
	return cmd
}

func newAdvanceCmd() *cobra.Command {
	var (
		flags engineFlags
		steps int
	)

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Print a board file advanced by N generations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGrid(flags.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			out, err := flags.stepper().Advance(g, steps)
			if err != nil {
				return err
			}
			return printGrid(cmd.OutOrStdout(), out, flags.text)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Generations to advance")
	return cmd
}

func newFinalCmd() *cobra.Command {
	var (
		flags       engineFlags
		maxAttempts int
	)

	cmd := &cobra.Command{
		Use:   "final",
		Short: "Print the first repeated generation of a board file",
		Long: `final steps the board until a generation repeats and prints it with the
number of generations computed. It fails if no repeat occurs within
--max-attempts generations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGrid(flags.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			conv, err := flags.stepper().FindStableDetailed(g, maxAttempts)
			if err != nil {
				return err
			}
			if flags.text {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%sattempts=%d period=%d cycle_start=%d\n",
					conv.Grid.String(), conv.Attempts, conv.Period, conv.CycleStart)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), finalOutput{
				State:      conv.Grid.Cells(),
				Attempts:   conv.Attempts,
				Period:     conv.Period,
				CycleStart: conv.CycleStart,
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&maxAttempts, "max-attempts", "m", 100, "Generation budget")
	return cmd
}

func printGrid(w io.Writer, g engine.Grid, text bool) error {
	if text {
		_, err := fmt.Fprint(w, g.String())
		return err
	}
	return writeJSON(w, gridOutput{
		State:      g.Cells(),
		Rows:       g.Rows(),
		Cols:       g.Cols(),
		Population: g.Population(),
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
