package policy

import (
	"github.com/fieldops/claimflow/internal/config"
	"github.com/fieldops/claimflow/internal/policy/service"
	"go.uber.org/fx"
)

var Module = fx.Module("policy.service",
	fx.Provide(config.NewTravelPolicyHolder),
	fx.Provide(service.New),
)
