package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"SolGuard/config"
	"SolGuard/internal/schedule"
	"SolGuard/pkg/logger"
	"SolGuard/pkg/metrics"
	"SolGuard/pkg/otel"
	"SolGuard/pkg/snowflake"
	"SolGuard/storage"
)

func main() {
	logger.Init()
	defer logger.Sync()

	config.MustValidate()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	// 与 server/worker 用不同的 machine ID，避免 snowflake 撞号
	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	if config.Cfg.TracingEnabled {
		shutdown, err := otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:    config.Cfg.ServiceName + "-scheduler",
			ServiceVersion: "1.0.0",
			Environment:    config.Cfg.Environment,
			OTLPEndpoint:   config.Cfg.TracingEndpoint,
			SampleRatio:    config.Cfg.TracingSampleRatio,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
				}
			}()
		}
	}

	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Warn("Failed to initialize metrics", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.String("environment", config.Cfg.Environment),
	)

	schedule.GetRunner().Run(ctx)

	logger.Logger.Info("Scheduler service shutting down gracefully")
}
