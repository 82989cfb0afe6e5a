package main

import (
	"fuzzgate/config"
	"fuzzgate/internal/baseline"
	"fuzzgate/internal/classify"
	"fuzzgate/internal/gate"
	"fuzzgate/internal/manifest"
	"fuzzgate/internal/report"
	"fuzzgate/internal/sandbox"
	"fuzzgate/internal/session"
	"fuzzgate/internal/verify"
	"fuzzgate/pkg/database"
	"fuzzgate/pkg/logger"
	"fuzzgate/pkg/mq"
	"fuzzgate/pkg/telemetry"
	"fuzzgate/pkg/watchdog"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,           // inject config
			database.NewDBConnection,    // inject db connection
			database.NewRedisClient,     // inject redis client
			logger.NewLogger,            // inject logger
			mq.NewRabbitMQ,              // inject rabbitmq publisher
			telemetry.NewTelemetry,      // inject telemetry
			telemetry.NewTracerFactory,  // inject telemetry tracer factory
			watchdog.NewWatchDogFactory, // inject watchdog factory
			sandbox.NewDockerRunner,     // inject sandboxed fuzzer runner
			verify.NewVerifier,          // inject crash verifier
			baseline.NewGCSStore,        // inject baseline artifact store
			baseline.NewCache,           // inject baseline build cache
			classify.NewClassifier,      // inject crash classifier
			report.NewReporter,          // inject verdict reporter
			manifest.NewResolver,        // inject target resolver
			session.NewSession,          // inject fuzz session
		),
		fx.Invoke(
			gate.NewGate,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			zlogger := fxevent.ZapLogger{Logger: log}
			zlogger.UseLogLevel(zap.DebugLevel)
			return &zlogger
		}),
	)
	app.Run()
}
