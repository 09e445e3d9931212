package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/adapters/assets"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/adapters/cache"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/app"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/config"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/logging"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/ports"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/reporting"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/telemetry"
	"github.com/google/uuid"
)

// TODO: Put in config
const PROD_DOMAIN_SUFFIX = "circleflags.app"
const STAGING_DOMAIN_SUFFIX = "circleflags-preview.pages.dev"

func main() {
	ctx := context.Background()

	instanceID := uuid.New().String()

	config, err := config.ConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load config", "error", err.Error())
		os.Exit(1)
	}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, nil)
	if config.TraceProject() != "" {
		handler = logging.NewGoogleCloudTracingLogHandler(handler, config.TraceProject())
	}
	logger := slog.New(handler).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	logger.Info("Loaded config", "config", config.NonSensitiveString())

	otelShutdown, err := telemetry.SetupOTelSDK(ctx, "circleflagskit")
	if err != nil {
		fail("Failed to initialize OpenTelemetry", "error", err.Error())
	}
	defer otelShutdown(context.Background())

	flagCache, err := cache.New(cache.Config{
		MaxEntries:   config.CacheMaxEntries(),
		MaxCostBytes: config.CacheMaxCostBytes(),
	})
	if err != nil {
		fail("Failed to initialize flag cache", "error", err.Error())
	}
	logger.Info("Initialized flag cache", "maxEntries", config.CacheMaxEntries(), "maxCostBytes", config.CacheMaxCostBytes())

	bundle := assets.NewBundle()

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(config)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	allowedOrigins, err := ports.NewDomainSuffixes(PROD_DOMAIN_SUFFIX, STAGING_DOMAIN_SUFFIX)
	if err != nil {
		fail("Failed to initialize allowed origins", "error", err.Error())
	}

	getFlagData := app.BuildGetFlagData(flagCache, bundle.Load)
	prefetchFlags := app.BuildPrefetchFlags(flagCache, bundle.Load)

	http.HandleFunc(
		"OPTIONS /v1/flags/{code}",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"GET /v1/flags/{code}",
		ports.MakeGetFlagHandler(
			getFlagData,
			allowedOrigins,
			logger.With("port", "flag"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"OPTIONS /v1/flags/prefetch",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"POST /v1/flags/prefetch",
		ports.MakePrefetchFlagsHandler(
			prefetchFlags,
			allowedOrigins,
			logger.With("port", "prefetch"),
			sentryMiddleware,
		),
	)

	logger.Info("Init complete")
	err = http.ListenAndServe(fmt.Sprintf(":%s", config.Port()), nil)
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}
