package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbanos/grove/config"
	"github.com/pbanos/grove/forest"
	"github.com/pbanos/grove/server"
	"github.com/pbanos/grove/tree/redisstore"
)

const shutdownTimeout = 10 * time.Second

type serveCmdConfig struct {
	*rootCmdConfig
	configInput string
	listen      string
}

func serveCmd(rootConfig *rootCmdConfig) *cobra.Command {
	cfg := &serveCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		Long:  `Load the models on a YML configuration file and serve predictions for them over an HTTP JSON API, along with Prometheus metrics`,
		Run: func(cmd *cobra.Command, args []string) {
			err := cfg.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			c, err := config.Load(cfg.configInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			if cfg.listen != "" {
				c.Listen = cfg.listen
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			models, err := cfg.loadModels(ctx, c)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			if err = cfg.serve(ctx, c, models); err != nil {
				cfg.logger.Error("serving predictions", zap.Error(err))
				os.Exit(4)
			}
		},
	}
	cmd.Flags().StringVar(&(cfg.configInput), "config", "", "path to a YML configuration file (required)")
	cmd.Flags().StringVarP(&(cfg.listen), "listen", "l", "", "address to listen on, overriding the configured one")
	return cmd
}

func (scc *serveCmdConfig) Validate() error {
	if scc.configInput == "" {
		return fmt.Errorf("required config flag was not set")
	}
	return nil
}

func (scc *serveCmdConfig) loadModels(ctx context.Context, c *config.Config) (map[string]server.Model, error) {
	var store *redisstore.Store
	if c.Redis != nil {
		rc := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		defer rc.Close()
		store = redisstore.New(rc, c.Redis.Prefix)
	}
	models := make(map[string]server.Model, len(c.Models))
	for _, m := range c.Models {
		logger := scc.logger.With(zap.String("model", m.Name))
		model, err := loadModel(ctx, m, store, forest.WithWorkers(c.Workers), forest.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("loading model %s: %v", m.Name, err)
		}
		logger.Info("model loaded", zap.String("kind", model.Kind()), zap.Strings("features", model.FeatureNames()))
		models[m.Name] = model
	}
	return models, nil
}

func (scc *serveCmdConfig) serve(ctx context.Context, c *config.Config, models map[string]server.Model) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s, err := server.New(models, server.WithLogger(scc.logger), server.WithRegistry(registry))
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              c.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		scc.logger.Info("serving predictions", zap.String("listen", c.Listen), zap.Int("models", len(models)))
		errs <- httpServer.ListenAndServe()
	}()
	select {
	case err = <-errs:
		return err
	case <-ctx.Done():
	}
	scc.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
