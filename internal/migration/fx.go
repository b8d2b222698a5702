package migration

import (
	claimdomain "github.com/fieldops/claimflow/internal/claim/domain"
	"github.com/fieldops/claimflow/internal/config"
	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
	"github.com/fieldops/claimflow/internal/seed"
	travellimitdomain "github.com/fieldops/claimflow/internal/travellimit/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The versioned SQL migrations target postgres. Other dialects
		// (sqlite in development and tests, mysql) get the schema from
		// the models directly.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			err := conn.AutoMigrate(
				&employeedomain.Employee{},
				&claimdomain.Claim{},
				&claimdomain.Approval{},
				&travellimitdomain.MonthlyTravelData{},
			)
			if err != nil {
				return err
			}
		}

		if err := seed.EnsureDefaultAdmin(conn); err != nil {
			return err
		}
		if cfg.SeedDemoData {
			return seed.EnsureDemoData(conn)
		}
		return nil
	}),
)
