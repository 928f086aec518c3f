package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"transcriber/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var diagnostic bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the transcriber daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr, err := ctx.apiAddress(); err == nil {
				cfg.Paths.APIBind = addr
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:   logLevel,
				Diagnostic: diagnostic,
				Ready: func(address string) {
					fmt.Fprintf(cmd.ErrOrStderr(), "transcriber daemon listening on %s\n", address)
				},
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")
	return cmd
}
