package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	stampfuse "github.com/systemshift/stampdag/internal/fuse"
)

func newMountCmd(a *app) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "mount MOUNTPOINT",
		Short: "Mount a read-only view of the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mountpoint := args[0]
			if err := os.MkdirAll(mountpoint, 0755); err != nil {
				return err
			}

			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			oracles, err := a.oracles()
			if err != nil {
				return err
			}

			var metricsSrv *http.Server
			if addr := a.cfg.MetricsAddr; addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
				metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
					}
				}()
				a.log.Info().Str("addr", addr).Msg("serving metrics")
			}

			server, err := stampfuse.MountFS(mountpoint, repo, stampfuse.Options{
				Oracles: oracles,
				Verify:  a.verifyOptions(),
				Logger:  a.log,
				Debug:   debug,
			})
			if err != nil {
				return err
			}

			done := make(chan os.Signal, 1)
			signal.Notify(done, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-done
				a.log.Info().Msg("shutting down")
				if metricsSrv != nil {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					metricsSrv.Shutdown(ctx)
				}
				server.Unmount()
			}()

			a.log.Info().Int("pid", os.Getpid()).Msg("ready")
			server.Wait()
			a.log.Info().Msg("stopped")
			return nil
		},
	}
	cmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	cmd.Flags().BoolVar(&debug, "debug", false, "log every FUSE request")
	a.v.BindPFlag("metrics_addr", cmd.Flags().Lookup("metrics-addr"))
	return cmd
}
