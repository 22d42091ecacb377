package telemetry

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.26.0"
)

const TracerName = "qms/clinic-queue"

type Options struct {
	ServiceName string
	Version     string
	Endpoint    string
	Insecure    bool
	// SampleRatio is the fraction of root spans kept. Zero drops every root
	// span; one or more keeps all of them.
	SampleRatio float64
}

// Setup installs a global OTLP tracer provider and returns its shutdown func.
// Without an endpoint tracing stays on the otel no-op provider.
func Setup(ctx context.Context, opts Options, logger logrus.FieldLogger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if opts.Endpoint == "" {
		return noop
	}

	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		logger.WithError(err).Warn("otel exporter error")
		return noop
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(opts.Version),
	))
	if err != nil {
		logger.WithError(err).Warn("otel resource error")
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(sampler(opts.SampleRatio)),
	)
	otel.SetTracerProvider(provider)
	logger.WithField("endpoint", opts.Endpoint).Info("otel tracing enabled")

	return provider.Shutdown
}

func sampler(ratio float64) trace.Sampler {
	if ratio >= 1 {
		return trace.AlwaysSample()
	}
	return trace.ParentBased(trace.TraceIDRatioBased(ratio))
}
