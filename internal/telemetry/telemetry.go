package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"student-registry/internal/config"
	"student-registry/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Telemetry struct {
	MeterProvider *sdkmetric.MeterProvider
	Meter         otelmetric.Meter
	Metrics       *metrics.Metrics
}

// Init builds the meter provider selected by cfg. With telemetry disabled it
// returns no-op instruments. The prometheus exporter registers into reg.
func Init(ctx context.Context, cfg config.TelemetryConfig, serviceVersion string, reg prometheus.Registerer, logger *slog.Logger) (*Telemetry, error) {
	if !cfg.Enabled {
		logger.Info("telemetry disabled, using no-op meter")
		meter := noop.NewMeterProvider().Meter(cfg.ServiceName)
		m, err := metrics.New(meter)
		if err != nil {
			return nil, err
		}
		return &Telemetry{Meter: meter, Metrics: m}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	reader, err := newReader(ctx, cfg, reg)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(cfg.ServiceName)
	m, err := metrics.New(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.Info("OTel metrics initialized", "exporter", cfg.Exporter, "endpoint", cfg.Endpoint)

	return &Telemetry{
		MeterProvider: meterProvider,
		Meter:         meter,
		Metrics:       m,
	}, nil
}

func newReader(ctx context.Context, cfg config.TelemetryConfig, reg prometheus.Registerer) (sdkmetric.Reader, error) {
	switch cfg.Exporter {
	case config.ExporterOTLP:
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second)), nil
	case config.ExporterPrometheus:
		exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		return exporter, nil
	default:
		return nil, fmt.Errorf("unknown metric exporter %q", cfg.Exporter)
	}
}

func (t *Telemetry) Shutdown(ctx context.Context, logger *slog.Logger) error {
	if t == nil || t.MeterProvider == nil {
		return nil
	}
	logger.Info("shutting down OTel meter provider")
	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
