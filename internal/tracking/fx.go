package tracking

import (
	"github.com/podslice/podslice/internal/tracking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tracking.service",
	fx.Provide(service.NewService),
)
