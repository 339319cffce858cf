package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-keytune/internal/config"
	"github.com/cwbudde/algo-keytune/internal/logging"
	"github.com/cwbudde/algo-keytune/internal/server"
	"github.com/cwbudde/algo-keytune/internal/session"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service (/analyze, /key_switch)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			kt, err := a.tuner()
			if err != nil {
				return err
			}
			store, err := session.Open(ctx, a.cfg.Session)
			if err != nil {
				return err
			}
			//goland:noinspection GoUnhandledErrorResult
			defer store.Close()
			logrus.WithField("backend", a.cfg.Session.Backend).Info("Session store ready")

			srv, err := server.New(a.cfg, kt, store)
			if err != nil {
				return err
			}
			defer srv.Close()

			config.Watch(a.v, func(c *config.Config) {
				if err := logging.SetLevel(c.Log.Level); err != nil {
					logrus.WithError(err).Warn("Ignoring log level change")
				}
				if c.Server != a.cfg.Server || c.Session != a.cfg.Session || c.Analysis != a.cfg.Analysis {
					logrus.Warn("Server, session or analysis configuration changed - restart keytune to apply")
				}
			})

			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().String("bind", "", "bind address")
	cmd.Flags().Int("port", 0, "listen port")
	cmd.Flags().Int("workers", 0, "concurrent analysis workers")
	cmd.Flags().String("max-upload", "", "largest accepted upload, e.g. 50MB")
	cmd.Flags().String("session-backend", "", "session store: memory or redis")
	addAnalysisFlags(cmd)
	return cmd
}
