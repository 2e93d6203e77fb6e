package content

import (
	"github.com/podslice/podslice/internal/content/service"
	"go.uber.org/fx"
)

var Module = fx.Module("content.service",
	fx.Provide(service.NewService),
)
