package claim

import (
	"github.com/fieldops/claimflow/internal/claim/repository"
	"github.com/fieldops/claimflow/internal/claim/service"
	"go.uber.org/fx"
)

var Module = fx.Module("claim.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewLedgerRecorder),
	fx.Provide(service.New),
)
