package session

import (
	"github.com/ocelon/parking/internal/session/service"
	"go.uber.org/fx"
)

var Module = fx.Module("session",
	fx.Provide(service.NewService),
)
