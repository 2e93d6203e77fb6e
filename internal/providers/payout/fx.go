package payout

import (
	"github.com/podslice/podslice/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newProvider(cfg config.Config, log *zap.Logger) Provider {
	return NewClient(cfg.Payout, log)
}

var Module = fx.Module("providers.payout",
	fx.Provide(newProvider),
)
