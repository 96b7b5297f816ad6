package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/ocelon/parking/internal/audit"
	"github.com/ocelon/parking/internal/auth"
	"github.com/ocelon/parking/internal/clock"
	"github.com/ocelon/parking/internal/config"
	"github.com/ocelon/parking/internal/dashboard"
	"github.com/ocelon/parking/internal/events"
	"github.com/ocelon/parking/internal/ledger"
	"github.com/ocelon/parking/internal/lot"
	"github.com/ocelon/parking/internal/migration"
	"github.com/ocelon/parking/internal/observability"
	"github.com/ocelon/parking/internal/payment"
	"github.com/ocelon/parking/internal/plan"
	"github.com/ocelon/parking/internal/seed"
	"github.com/ocelon/parking/internal/server"
	"github.com/ocelon/parking/internal/session"
	"github.com/ocelon/parking/internal/support"
	"github.com/ocelon/parking/internal/user"
	"github.com/ocelon/parking/pkg/db"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	fx.New(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		auth.Module,

		fx.Provide(func() (*snowflake.Node, error) {
			return snowflake.NewNode(1)
		}),
		fx.Provide(events.NewOutbox),

		lot.Module,
		session.Module,
		ledger.Module,
		audit.Module,
		plan.Module,
		user.Module,
		payment.Module,
		support.Module,
		dashboard.Module,
		server.Module,

		fx.Invoke(func(*sdktrace.TracerProvider) {}),
		fx.Invoke(migration.Run),
		fx.Invoke(bootstrap),
	).Run()
}

// bootstrap seeds the default admin and demo lots when enabled.
func bootstrap(cfg config.Config, conn *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
	if cfg.Bootstrap.EnsureDefaultAdmin {
		if err := seed.EnsureDefaultAdmin(conn, node); err != nil {
			return err
		}
	}
	if cfg.Bootstrap.SeedDemoLots {
		if err := seed.EnsureDemoLots(conn, node); err != nil {
			return err
		}
	}
	log.Info("bootstrap complete")
	return nil
}
