package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/avivsinai/a2a-mailbox/internal/mcpserver"
	"github.com/avivsinai/a2a-mailbox/internal/metrics"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mailbox as MCP tools over stdio",
		Long: `Serve the mailbox as MCP tools over stdio.

Logs go to stderr; stdout carries only the MCP protocol. When
--metrics-addr is set, /metrics and /healthz are served on that address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr := a.cfg.Metrics.Addr; addr != "" {
				router := metrics.NewRouter(a.log, a.cfg.Root, a.version)
				go func() {
					if err := metrics.Serve(ctx, a.log, addr, router); err != nil {
						a.log.Error().Err(err).Str("addr", addr).Msg("metrics listener failed")
					}
				}()
			}

			s := mcpserver.New(a.svc, mcpserver.Options{
				Version:       a.version,
				Logger:        a.log,
				MaxIterations: a.cfg.Poll.MaxIterations,
				Delay:         a.cfg.Poll.Delay,
			})
			err := mcpserver.Serve(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout(), a.log)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("metrics-addr", "", "listen address for /metrics and /healthz (disabled when empty)")
	_ = a.v.BindPFlag("metrics.addr", cmd.Flags().Lookup("metrics-addr"))
	return cmd
}
