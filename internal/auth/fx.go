package auth

import (
	"github.com/ocelon/parking/internal/auth/token"
	"github.com/ocelon/parking/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(func(cfg config.Config) (*token.Issuer, error) {
		return token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}),
)
