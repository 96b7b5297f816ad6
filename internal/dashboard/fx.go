package dashboard

import (
	"github.com/ocelon/parking/internal/dashboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dashboard",
	fx.Provide(service.NewService),
)
