package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fieldops/claimflow/internal/policy/domain"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TravelPolicyHolder serves the current travel policy table. The table is
// loaded from travelpolicy.yml when present and hot-reloaded on file change;
// otherwise the compiled-in defaults apply.
type TravelPolicyHolder struct {
	current atomic.Value // holds domain.Table
}

func NewTravelPolicyHolder(cfg Config, log *zap.Logger) (*TravelPolicyHolder, error) {
	v := viper.New()

	if path := strings.TrimSpace(cfg.PolicyConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("travelpolicy")
		v.SetConfigType("yml")
		v.AddConfigPath("/var/lib/claimflow/config")
		v.AddConfigPath("/etc/claimflow")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CLAIMFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &TravelPolicyHolder{}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		holder.current.Store(domain.DefaultTable())
		return holder, nil
	}

	table, err := unmarshalTravelPolicy(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(table)

	v.OnConfigChange(func(_ fsnotify.Event) {
		reloaded, err := unmarshalTravelPolicy(v)
		if err != nil {
			if log != nil {
				log.Warn("travel policy reload failed, keeping previous table", zap.Error(err))
			}
			return
		}
		holder.current.Store(reloaded)
		if log != nil {
			log.Info("travel policy reloaded", zap.Int("grades", len(reloaded.Grades)))
		}
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticTravelPolicyHolder wraps a fixed table, for tests and seeding.
func NewStaticTravelPolicyHolder(table domain.Table) *TravelPolicyHolder {
	holder := &TravelPolicyHolder{}
	holder.current.Store(normalizeTravelPolicy(table))
	return holder
}

// Table returns the currently active policy table.
func (h *TravelPolicyHolder) Table() domain.Table {
	table, _ := h.current.Load().(domain.Table)
	return table
}

func unmarshalTravelPolicy(v *viper.Viper) (domain.Table, error) {
	var table domain.Table
	if err := v.UnmarshalKey("travelPolicy", &table); err != nil {
		return domain.Table{}, err
	}
	return normalizeTravelPolicy(table), nil
}

func normalizeTravelPolicy(table domain.Table) domain.Table {
	defaults := domain.DefaultTable()
	if table.FuelPricePerLiter <= 0 {
		table.FuelPricePerLiter = defaults.FuelPricePerLiter
	}
	if len(table.Grades) == 0 {
		table.Grades = defaults.Grades
	}
	if len(table.ManagerGrades) == 0 {
		table.ManagerGrades = defaults.ManagerGrades
	}
	for grade, ent := range table.Grades {
		if strings.TrimSpace(ent.Grade) == "" {
			ent.Grade = grade
			table.Grades[grade] = ent
		}
	}
	return table
}
