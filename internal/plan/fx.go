package plan

import (
	"github.com/ocelon/parking/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan",
	fx.Provide(service.NewService),
)
