package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "github.com/defect-tracker/api/v1"
	"github.com/defect-tracker/config"
	"github.com/defect-tracker/services"
	"github.com/gin-gonic/gin"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveSkipSeed bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(inj *do.Injector) error {
			cfg := do.MustInvoke[*config.Config](inj)
			log := do.MustInvoke[*zap.Logger](inj)

			gin.SetMode(cfg.App.Env)

			if !serveSkipSeed {
				identity := do.MustInvoke[*services.IdentityService](inj)
				if err := services.Seed(cmd.Context(), identity, cfg.Seed, log); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
			}

			deps, err := do.Invoke[v1.RouterDeps](inj)
			if err != nil {
				return err
			}
			engine := v1.NewEngine(deps)

			addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
			srv := &http.Server{Addr: addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}

			serveErr := make(chan error, 1)
			go func() {
				log.Sugar().Infow("starting http server", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			// graceful shutdown
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("listen: %w", err)
				}
			case <-quit:
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Sugar().Errorw("server shutdown", "err", err)
			}
			log.Sugar().Info("server exited")
			return nil
		})
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveSkipSeed, "skip-seed", false, "do not create default roles and the admin account on start")
}
