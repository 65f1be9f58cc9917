// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jaraba/lcis/internal/metrics"
	"github.com/jaraba/lcis/internal/tool"
)

func (a *app) newServeCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the coherence tools over MCP on stdio",
		Long: `Serve classify_legal_intent, enrich_legal_retrieval, build_coherence_prompt,
validate_legal_output, enforce_legal_disclaimer, track_conversation_turn and
reset_conversation over the Model Context Protocol on stdin/stdout.

Logs go to stderr. With --metrics-addr (or metrics.addr in the config file)
Prometheus metrics are served on /metrics at that address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			addr := a.cfg.Metrics.Addr
			if cmd.Flags().Changed("metrics-addr") {
				addr = metricsAddr
			}

			var m *metrics.Metrics
			if addr != "" {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				m = metrics.New(reg)

				srv := newMetricsServer(addr, reg)
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				a.logger.Info("serving metrics", zap.String("addr", addr))
			}

			server := tool.NewServer(tool.New(nil, a.cfg, nil, m, a.logger), version)
			a.logger.Info("serving MCP on stdio", zap.String("version", version))
			if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp server stopped: %w", err)
			}
			a.logger.Info("MCP server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
