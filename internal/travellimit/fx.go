package travellimit

import (
	"github.com/fieldops/claimflow/internal/travellimit/repository"
	"github.com/fieldops/claimflow/internal/travellimit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("travellimit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
