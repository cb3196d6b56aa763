package monitoring

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterProvider bridges OpenTelemetry instruments, such as the otelhttp
// client metrics of the backend transport, onto the Prometheus registry.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
}

// NewMeterProvider installs a global meter provider exporting to reg
func NewMeterProvider(reg prometheus.Registerer) (*MeterProvider, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return &MeterProvider{provider: provider}, nil
}

// Shutdown stops collection
func (m *MeterProvider) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
