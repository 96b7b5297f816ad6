package user

import (
	"github.com/ocelon/parking/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user",
	fx.Provide(service.NewService),
)
