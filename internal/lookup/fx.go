package lookup

import (
	"go.uber.org/fx"

	"github.com/JovSele/patentapi/internal/lookup/service"
)

var Module = fx.Module("lookup.service",
	fx.Provide(service.NewService),
)
