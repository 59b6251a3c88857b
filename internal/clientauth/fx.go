package clientauth

import (
	"go.uber.org/fx"

	"github.com/JovSele/patentapi/internal/clientauth/service"
)

var Module = fx.Module("clientauth",
	fx.Provide(service.NewResolver),
)
