// Package source assembles the upstream office adapters into the
// jurisdiction registry.
package source

import (
	"go.uber.org/fx"

	"github.com/JovSele/patentapi/internal/patent"
	"github.com/JovSele/patentapi/internal/source/domain"
	"github.com/JovSele/patentapi/internal/source/epo"
	"github.com/JovSele/patentapi/internal/source/uspto"
)

var Module = fx.Module("source",
	fx.Provide(epo.New),
	fx.Provide(uspto.New),
	fx.Provide(provideRegistry),
)

type RegistryParam struct {
	fx.In

	EPO   *epo.Adapter
	USPTO *uspto.Adapter
}

func provideRegistry(p RegistryParam) *domain.Registry {
	registry := domain.NewRegistry()
	registry.Register(patent.JurisdictionEP, p.EPO)
	registry.Register(patent.JurisdictionUS, p.USPTO)
	return registry
}
