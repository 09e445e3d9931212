package cache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type cacheMetricsCollection struct {
	hits         metric.Int64Counter
	misses       metric.Int64Counter
	loads        metric.Int64Counter
	loadFailures metric.Int64Counter
	evictions    metric.Int64Counter
}

var metrics cacheMetricsCollection

const meterName = "circleflagskit/cache"

func init() {
	meter := otel.Meter(meterName)

	mustCounter := func(name, description string) metric.Int64Counter {
		counter, err := meter.Int64Counter(name, metric.WithDescription(description))
		if err != nil {
			panic(fmt.Errorf("failed to create %s metric: %w", name, err))
		}
		return counter
	}

	metrics = cacheMetricsCollection{
		hits:         mustCounter("cache/hits", "Number of GetOrLoad calls served from the cache"),
		misses:       mustCounter("cache/misses", "Number of GetOrLoad calls that had to join or start a load"),
		loads:        mustCounter("cache/loads", "Number of loader invocations"),
		loadFailures: mustCounter("cache/load_failures", "Number of loader invocations that produced no payload"),
		evictions:    mustCounter("cache/evictions", "Number of payloads evicted to satisfy the configured bounds"),
	}
}

func registerOccupancyGauges(flagCache *FlagCache) {
	meter := otel.Meter(meterName)

	entryCount, err := meter.Int64ObservableGauge(
		"cache/entries",
		metric.WithDescription("Number of cached payloads"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create entry count metric: %w", err))
	}

	costBytes, err := meter.Int64ObservableGauge(
		"cache/cost_bytes",
		metric.WithDescription("Aggregate size of the cached payloads"),
		metric.WithUnit("By"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create cost metric: %w", err))
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			observer.ObserveInt64(entryCount, int64(flagCache.Len()))
			observer.ObserveInt64(costBytes, int64(flagCache.CostBytes()))
			return nil
		},
		entryCount,
		costBytes,
	)
	if err != nil {
		panic(fmt.Errorf("failed to register occupancy gauges: %w", err))
	}
}
