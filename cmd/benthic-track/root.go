package main

import (
	"context"
	"net/http"
	"time"

	"github.com/LdDl/benthic-mot/config"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app is state shared by subcommands, filled in by root PersistentPreRunE
type app struct {
	viper    *viper.Viper
	settings config.Settings
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "benthic-track",
		Short:         "Track benthic organisms and extract motion features",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, a.viper); err != nil {
				return err
			}
			settings, err := config.Load(a.viper, configPath)
			if err != nil {
				return err
			}
			a.settings = settings
			a.logger, err = newLogger(settings.Debug)
			if err != nil {
				return errors.Wrap(err, "Can't create logger")
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	v, err := config.New()
	if err != nil {
		// Defaults are static, failure here is a programming error
		panic(err)
	}
	a.viper = v

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	flags.BoolP("debug", "d", false, "Enable debug logging")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	bindSetting(flags, "debug", "debug")
	bindSetting(flags, "metrics-addr", "metrics.addr")

	rootCmd.AddCommand(newTrackCmd(a), newFeaturesCmd(a), newConfigCmd(a), newRunsCmd(a))
	return rootCmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// serveMetrics exposes registry on addr. Empty addr disables it.
// Returned function stops the server.
func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
}
