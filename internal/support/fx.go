package support

import (
	"github.com/ocelon/parking/internal/support/service"
	"go.uber.org/fx"
)

var Module = fx.Module("support",
	fx.Provide(service.NewService),
)
