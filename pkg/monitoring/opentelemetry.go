package monitoring

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type OpenTelemetry struct {
	logger         *logrus.Logger
	serviceName    string
	environment    string
	endpoint       string
	insecure       bool
	tracerProvider *sdktrace.TracerProvider
}

// NewOpenTelemetry prepares tracing. Without an endpoint only context
// propagation is installed and spans are not exported.
func NewOpenTelemetry(logger *logrus.Logger, serviceName, environment, endpoint string, insecure bool) *OpenTelemetry {
	return &OpenTelemetry{
		logger:      logger,
		serviceName: serviceName,
		environment: environment,
		endpoint:    endpoint,
		insecure:    insecure,
	}
}

func (o *OpenTelemetry) Start(ctx context.Context) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if o.endpoint == "" {
		o.logger.WithContext(ctx).Warn("otlp endpoint is not set, traces will not be exported")
		return
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(o.serviceName),
			semconv.DeploymentEnvironment(o.environment),
		),
	)
	if err != nil {
		o.logger.WithContext(ctx).WithError(err).Error("failed to create otel resource")
		return
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(o.endpoint)}
	if o.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		o.logger.WithContext(ctx).WithError(err).Error("failed to create otlp trace exporter")
		return
	}

	o.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(o.tracerProvider)
}

func (o *OpenTelemetry) Stop(ctx context.Context) {
	if o.tracerProvider == nil {
		return
	}

	if err := o.tracerProvider.Shutdown(ctx); err != nil {
		o.logger.WithContext(ctx).WithError(err).Error("failed to shutdown tracer provider")
	}
}
