// Command swarmbusd runs the swarmbus engine behind an HTTP API.
//
// Configuration comes from config.yaml in the working directory (or
// ./configs) with SWARMBUS_-prefixed environment overrides, e.g.
//
//	SWARMBUS_SERVER_ADDR=:9090 SWARMBUS_LOGGING_LEVEL=debug swarmbusd
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/swarmbus-io/swarmbus"
	"github.com/swarmbus-io/swarmbus/config"
	"github.com/swarmbus-io/swarmbus/logging"
	"github.com/swarmbus-io/swarmbus/model"
	"github.com/swarmbus-io/swarmbus/model/anthropic"
	"github.com/swarmbus-io/swarmbus/model/openai"
	"github.com/swarmbus-io/swarmbus/server"
	"github.com/swarmbus-io/swarmbus/tool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "swarmbusd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	system := swarmbus.New(func(o *swarmbus.Options) {
		o.Logger = logger
		o.HistoryLimit = cfg.Bus.HistoryLimit
	})
	defer system.Close()

	if err := registerBuiltinTools(system.Tools); err != nil {
		return err
	}

	mdl, err := buildModel(cfg)
	if err != nil {
		return err
	}

	handler := server.New(system, func(o *server.Options) {
		o.Logger = logger
		o.Model = mdl
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("swarmbusd.listen", "addr", cfg.Server.Addr, "version", swarmbus.Version)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("swarmbusd.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func registerBuiltinTools(reg *tool.Registry) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	for _, t := range []tool.Tool{
		tool.NewCurrentTimeTool(),
		tool.NewWordCountTool(),
		tool.NewReadFileTool(wd),
	} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// buildModel constructs the provider selected in config, or nil when
// model-backed agents are disabled.
func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Model.Provider {
	case "none":
		return nil, nil
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			o.Temperature = cfg.Model.Temperature
			o.MaxCompletionTokens = cfg.Model.MaxTokens
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model.Name != "" {
				o.Model = sdkanthropic.Model(cfg.Model.Name)
			}
			o.Temperature = cfg.Model.Temperature
			o.MaxTokens = cfg.Model.MaxTokens
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}
