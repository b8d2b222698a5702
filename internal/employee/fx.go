package employee

import (
	"github.com/fieldops/claimflow/internal/employee/repository"
	"github.com/fieldops/claimflow/internal/employee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("employee.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
