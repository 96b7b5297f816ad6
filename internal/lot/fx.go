package lot

import (
	"github.com/ocelon/parking/internal/lot/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lot",
	fx.Provide(service.NewService),
)
