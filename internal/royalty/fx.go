package royalty

import (
	"github.com/podslice/podslice/internal/royalty/service"
	"go.uber.org/fx"
)

var Module = fx.Module("royalty.service",
	fx.Provide(service.NewService),
)
