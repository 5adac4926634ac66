// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Procman package implements the command line of a server program.

package procman

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/hexinfra/webcore/hemi"
	"github.com/spf13/cobra"
)

// Opts describes a server program.
type Opts struct {
	ProgramName  string
	ProgramTitle string
	Setup        func(router *hemi.Router) // registers routes before the server starts
	ShutTimeout  time.Duration             // defaults to 10s
}

// Main runs the program and exits with a non-zero code on failure.
func Main(opts *Opts) {
	if err := NewRootCmd(opts).Execute(); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	configFile string
	listen     []string
	webRoot    string
	debug      int
	workers    int
}

// NewRootCmd creates the root command with its "serve", "check" and "version" subcommands.
func NewRootCmd(opts *Opts) *cobra.Command {
	var f flags
	rootCmd := &cobra.Command{
		Use:           opts.ProgramName,
		Short:         opts.ProgramTitle + " is an HTTP/1.x server.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&f.configFile, "config", "c", "", "config file in YAML")
	persistent.StringSliceVarP(&f.listen, "listen", "l", nil, "listen addresses, like :8080")
	persistent.StringVar(&f.webRoot, "root", "", "serve static files from this directory")
	persistent.IntVar(&f.debug, "debug", 0, "debug level, 0 to 2")
	persistent.IntVar(&f.workers, "workers", 0, "size of the worker pool")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start serving until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return serve(cmd, opts, config)
		},
	}
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check the config and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, &f); err != nil {
				color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), "FAIL")
				return err
			}
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "PASS")
			return nil
		},
	}
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", opts.ProgramName, hemi.Version)
		},
	}
	rootCmd.AddCommand(serveCmd, checkCmd, versionCmd)
	return rootCmd
}

// loadConfig loads the config file, if any, then applies the flags that were set.
func loadConfig(cmd *cobra.Command, f *flags) (*hemi.Config, error) {
	config := hemi.DefaultConfig()
	if f.configFile != "" {
		loaded, err := hemi.LoadConfig(f.configFile)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	changed := cmd.Flags().Changed
	if changed("listen") {
		config.Listen = f.listen
	}
	if changed("root") {
		config.Static.Enabled = f.webRoot != ""
		config.Static.WebRoot = f.webRoot
	}
	if changed("debug") {
		config.Debug = f.debug
	}
	if changed("workers") {
		config.Workers = f.workers
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func serve(cmd *cobra.Command, opts *Opts, config *hemi.Config) error {
	logger := hemi.NewLogger(config.Log, config.Debug > 0)
	server, err := hemi.NewServer(config, logger)
	if err != nil {
		return err
	}
	if opts.Setup != nil {
		opts.Setup(server.Router())
	}
	if err := server.Start(); err != nil {
		logger.Error().Err(err).Msg("start server failed")
		return err
	}
	banner := color.New(color.FgCyan, color.Bold)
	banner.Fprintf(cmd.OutOrStdout(), "%s %s is serving on %v\n", opts.ProgramTitle, hemi.Version, server.Addrs())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	timeout := opts.ShutTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutCtx); err != nil && !errors.Is(err, hemi.ErrServerClosed) {
		logger.Warn().Err(err).Msg("shutdown is not clean")
		return err
	}
	logger.Info().Msg("bye")
	return nil
}
