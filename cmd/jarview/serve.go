package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datallboy/jarview/internal/api"
	"github.com/datallboy/jarview/internal/api/controllers"
	"github.com/datallboy/jarview/internal/app"
	"github.com/datallboy/jarview/internal/scheme"
	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve jar:// URLs over HTTP under /jar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(true)
			if err != nil {
				return err
			}
			defer rt.Close()

			// Setup Signal Handling for Graceful Shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d := rt.dispatcher(scheme.PrefixLinker(controllers.JarPrefix))
			dispatcherDone := make(chan struct{})
			go func() {
				defer close(dispatcherDone)
				d.Start(ctx)
			}()

			appCtx := app.NewContext(rt.cfg, rt.log)
			appCtx.Dispatcher = d
			appCtx.History = rt.history

			e := echo.New()
			api.RegisterRoutes(e, appCtx)

			srv := &http.Server{
				Addr:              ":" + rt.cfg.Port,
				Handler:           e,
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					rt.log.Warn("HTTP shutdown: %v", err)
				}
			}()

			rt.log.Info("%s listening on :%s (output dir %s)", rt.cfg.AppName, rt.cfg.Port, rt.cfg.Jar.OutputDir)

			err = srv.ListenAndServe()
			stop()
			<-dispatcherDone

			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			rt.log.Info("Shutdown complete")
			return nil
		},
	}
}
