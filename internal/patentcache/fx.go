package patentcache

import (
	"go.uber.org/fx"

	"github.com/JovSele/patentapi/internal/patentcache/repository"
)

var Module = fx.Module("patentcache",
	fx.Provide(repository.Provide),
)
