package merchant

import (
	"github.com/smallbiznis/ordersync/internal/merchant/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("merchant.repository",
	fx.Provide(repository.Provide),
)
