package server

import (
	"context"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
	kmetrics "github.com/go-kratos/kratos/v2/middleware/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	promexp "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Telemetry 汇总共享的指标 instrument 与 registry。
type Telemetry struct {
	MeterProvider      *sdkmetric.MeterProvider
	Meter              metric.Meter
	RequestCounter     metric.Int64Counter
	SecondsHistogram   metric.Float64Histogram
	PrometheusRegistry *prometheus.Registry
}

// NewTelemetry 初始化 OpenTelemetry 指标 instrument 与 Prometheus exporter。
func NewTelemetry(meta configloader.ServiceMetadata, logger log.Logger) (*Telemetry, func(), error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	exporter, err := promexp.New(
		promexp.WithRegisterer(registry),
		promexp.WithoutUnits(),
	)
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithView(kmetrics.DefaultSecondsHistogramView(kmetrics.DefaultServerSecondsHistogramName)),
	)
	otel.SetMeterProvider(mp)

	name := meta.Name
	if name == "" {
		name = "uploads"
	}
	meter := mp.Meter(name)

	requestCounter, err := kmetrics.DefaultRequestsCounter(meter, kmetrics.DefaultServerRequestsCounterName)
	if err != nil {
		return nil, nil, err
	}
	secondsHistogram, err := kmetrics.DefaultSecondsHistogram(meter, kmetrics.DefaultServerSecondsHistogramName)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(ctx); err != nil {
			log.NewHelper(logger).Warnf("shutdown meter provider: %v", err)
		}
	}

	return &Telemetry{
		MeterProvider:      mp,
		Meter:              meter,
		RequestCounter:     requestCounter,
		SecondsHistogram:   secondsHistogram,
		PrometheusRegistry: registry,
	}, cleanup, nil
}

// ProvideMeter 向自行记录指标的组件暴露服务 meter。
func ProvideMeter(t *Telemetry) metric.Meter {
	return t.Meter
}
