package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fieldops/claimflow/internal/cache"
	"github.com/fieldops/claimflow/internal/clock"
	"github.com/fieldops/claimflow/internal/config"
	"github.com/fieldops/claimflow/internal/policy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Rate tables change rarely; stale reads within the TTL are acceptable.
const entitlementTTL = 5 * time.Minute

type Params struct {
	fx.In

	Log    *zap.Logger
	Holder *config.TravelPolicyHolder
	Clock  clock.Clock
}

type Service struct {
	log    *zap.Logger
	holder *config.TravelPolicyHolder
	cache  cache.Cache[string, domain.Entitlement]
}

func New(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("policy.service"),
		holder: p.Holder,
		cache:  cache.NewTTLCacheWithClock[string, domain.Entitlement](p.Clock),
	}
}

func (s *Service) Lookup(grade string) domain.Entitlement {
	grade = strings.ToUpper(strings.TrimSpace(grade))

	if ent, ok := s.cache.Get(grade); ok {
		return ent
	}

	table := s.holder.Table()
	ent, ok := table.Grades[grade]
	if !ok {
		s.log.Debug("unknown grade, serving default entitlement", zap.String("grade", grade))
		ent = domain.DefaultEntitlement()
	}
	s.cache.Set(grade, ent, entitlementTTL)
	return ent
}

func (s *Service) MonthlyLimit(grade string) int64 {
	limit := s.Lookup(grade).MonthlyLimit
	if limit <= 0 {
		return domain.BaselineMonthlyLimit
	}
	return limit
}

func (s *Service) FuelEntitlement(grade string, distanceKm float64) int64 {
	ent := s.Lookup(grade)
	if ent.FuelEfficiencyKmPerLiter <= 0 || distanceKm <= 0 {
		return 0
	}
	price := s.holder.Table().FuelPricePerLiter
	if price <= 0 {
		price = domain.DefaultFuelPricePerLiter
	}
	return int64(math.Round(distanceKm / ent.FuelEfficiencyKmPerLiter * float64(price)))
}

func (s *Service) ManagerGrades() []string {
	grades := s.holder.Table().ManagerGrades
	out := make([]string, 0, len(grades))
	for _, grade := range grades {
		grade = strings.ToUpper(strings.TrimSpace(grade))
		if grade == "" {
			continue
		}
		out = append(out, grade)
	}
	return out
}

func (s *Service) Grades() []domain.Entitlement {
	table := s.holder.Table()
	out := make([]domain.Entitlement, 0, len(table.Grades))
	for _, ent := range table.Grades {
		out = append(out, ent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Grade < out[j].Grade })
	return out
}

func (s *Service) Invalidate() {
	s.cache.Invalidate()
}
