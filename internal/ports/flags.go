package ports

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/app"
	e "github.com/ddeerrrriicckk/CircleFlagsKit/internal/errors"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/logging"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/ratelimiting"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/reporting"
)

const maxPrefetchBodyBytes = 64 * 1024

func makeOnLimitExceeded(rateLimiter ratelimiting.RequestRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		statusCode := writeErrorResponse(ctx, w, fmt.Errorf("%w: rate limit exceeded", e.RatelimitExceededError))

		logger.Info("Returning response", "statusCode", statusCode, "reason", "ratelimit exceeded", "key", rateLimiter.KeyFor(r))
	}
}

func MakeGetFlagHandler(
	getFlagData app.GetFlagData,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(8),
		ratelimiting.BurstSize(480),
	)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		ipLimiter,
		ratelimiting.IPKeyFunc,
	)

	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("flag"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("flag"),
		BuildCORSMiddleware(allowedOrigins),
		NewRateLimitMiddleware(ipRateLimiter, makeOnLimitExceeded(ipRateLimiter)),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rawCode := r.PathValue("code")
		ctx = logging.AddMetaToContext(ctx,
			slog.String("rawCode", rawCode),
		)
		logger := logging.FromContext(ctx)

		ctx = reporting.AddExtrasToContext(ctx,
			map[string]string{
				"rawCode": rawCode,
			},
		)

		payload, key, err := getFlagData(ctx, rawCode)
		if err != nil {
			// NOTE: GetFlagData reports its own errors
			logger.Error("Error getting flag data", "error", err)
			statusCode := writeErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		statusCode := 200
		logger.Info("Returning response", "statusCode", statusCode, "reason", "success", "key", key, "contentLength", len(payload))
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Flag-Code", key)
		w.WriteHeader(statusCode)
		w.Write(payload)
	}

	return middleware(handler)
}

type prefetchRequest struct {
	Codes          []string `json:"codes"`
	MaxConcurrency int      `json:"maxConcurrency"`
}

func MakePrefetchFlagsHandler(
	prefetchFlags app.PrefetchFlags,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(1),
		ratelimiting.BurstSize(10),
	)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		ipLimiter,
		ratelimiting.IPKeyFunc,
	)

	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("prefetch"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("prefetch"),
		BuildCORSMiddleware(allowedOrigins),
		NewRateLimitMiddleware(ipRateLimiter, makeOnLimitExceeded(ipRateLimiter)),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		body, err := io.ReadAll(io.LimitReader(r.Body, maxPrefetchBodyBytes))
		if err != nil {
			statusCode := writeErrorResponse(ctx, w, fmt.Errorf("%w: failed to read request body", e.APIClientError))
			logger.Info("Returning response", "statusCode", statusCode, "reason", "bad body")
			return
		}

		var request prefetchRequest
		if err := json.Unmarshal(body, &request); err != nil {
			statusCode := writeErrorResponse(ctx, w, fmt.Errorf("%w: invalid JSON body", e.APIClientError))
			logger.Info("Returning response", "statusCode", statusCode, "reason", "invalid json")
			return
		}

		ctx = logging.AddMetaToContext(ctx,
			slog.Int("codeCount", len(request.Codes)),
			slog.Int("maxConcurrency", request.MaxConcurrency),
		)
		logger = logging.FromContext(ctx)

		prefetchFlags(ctx, request.Codes, request.MaxConcurrency)

		statusCode := http.StatusNoContent
		logger.Info("Returning response", "statusCode", statusCode, "reason", "success")
		w.WriteHeader(statusCode)
	}

	return middleware(handler)
}
