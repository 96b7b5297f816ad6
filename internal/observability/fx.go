package observability

import (
	"github.com/ocelon/parking/internal/config"
	"github.com/ocelon/parking/internal/observability/logger"
	"github.com/ocelon/parking/internal/observability/metrics"
	"github.com/ocelon/parking/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) (*zap.Logger, error) {
		log, err := logger.New(cfg.Environment)
		if err != nil {
			return nil, err
		}
		zap.ReplaceGlobals(log)
		return log, nil
	}),
	fx.Provide(func(cfg config.Config) tracing.Config {
		return tracing.Config{
			Enabled:          cfg.Observability.OTLPEndpoint != "",
			ServiceName:      cfg.ServiceName,
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.Observability.OTLPEndpoint,
			ExporterProtocol: cfg.Observability.OTLPProtocol,
		}
	}),
	fx.Provide(tracing.NewProvider),
	fx.Provide(func(cfg config.Config) (*metrics.HTTPMetrics, error) {
		return metrics.NewHTTPMetrics(cfg.ServiceName)
	}),
)
