// Package domain defines the grade-based travel policy table.
package domain

// Amounts are whole rupees, distances kilometers.

// BaselineMonthlyLimit applies when a grade has no policy row. Claims are
// never blocked by a missing row; the lowest-tier limit is assumed instead.
const BaselineMonthlyLimit int64 = 10000

// DefaultFuelPricePerLiter is used until the policy file overrides it.
const DefaultFuelPricePerLiter int64 = 100

// Entitlement is one grade's row in the travel policy table.
type Entitlement struct {
	Grade          string           `mapstructure:"grade" json:"grade"`
	RatePerKm      int64            `mapstructure:"ratePerKm" json:"rate_per_km"`
	DailyAllowance int64            `mapstructure:"dailyAllowance" json:"daily_allowance"`
	// DailyAllowanceByLocation overrides DailyAllowance per location class
	// (metro, non_metro).
	DailyAllowanceByLocation map[string]int64 `mapstructure:"dailyAllowanceByLocation" json:"daily_allowance_by_location,omitempty"`
	MonthlyLimit             int64            `mapstructure:"monthlyLimit" json:"monthly_limit"`
	HotelCap                 int64            `mapstructure:"hotelCap" json:"hotel_cap"`
	VehicleType              string           `mapstructure:"vehicleType" json:"vehicle_type"`
	// FuelEfficiencyKmPerLiter of 0 means fuel is reimbursed on actual
	// basis and no formula applies.
	FuelEfficiencyKmPerLiter float64 `mapstructure:"fuelEfficiencyKmPerLiter" json:"fuel_efficiency_km_per_liter"`
}

// Table is the full policy configuration.
type Table struct {
	FuelPricePerLiter int64                  `mapstructure:"fuelPricePerLiter"`
	Grades            map[string]Entitlement `mapstructure:"grades"`
	// ManagerGrades feeds the role classifier's grade heuristic.
	ManagerGrades []string `mapstructure:"managerGrades"`
}

// DefaultEntitlement is the lowest-tier fallback for unknown grades.
func DefaultEntitlement() Entitlement {
	return Entitlement{
		Grade:          "default",
		RatePerKm:      8,
		DailyAllowance: 500,
		MonthlyLimit:   BaselineMonthlyLimit,
		HotelCap:       1500,
		VehicleType:    "public",
	}
}

// DefaultTable is the compiled-in policy used when no travelpolicy.yml is
// present. Values mirror the standard field-staff entitlement sheet.
func DefaultTable() Table {
	return Table{
		FuelPricePerLiter: DefaultFuelPricePerLiter,
		ManagerGrades:     []string{"M1", "M2", "M3"},
		Grades: map[string]Entitlement{
			"L1": {
				Grade:          "L1",
				RatePerKm:      8,
				DailyAllowance: 500,
				DailyAllowanceByLocation: map[string]int64{
					"metro":     700,
					"non_metro": 500,
				},
				MonthlyLimit: 15000,
				HotelCap:     1500,
				VehicleType:  "public",
			},
			"L2": {
				Grade:          "L2",
				RatePerKm:      10,
				DailyAllowance: 800,
				DailyAllowanceByLocation: map[string]int64{
					"metro":     1000,
					"non_metro": 800,
				},
				MonthlyLimit:             25000,
				HotelCap:                 2500,
				VehicleType:              "two_wheeler",
				FuelEfficiencyKmPerLiter: 40,
			},
			"L3": {
				Grade:          "L3",
				RatePerKm:      12,
				DailyAllowance: 1200,
				DailyAllowanceByLocation: map[string]int64{
					"metro":     1500,
					"non_metro": 1200,
				},
				MonthlyLimit:             40000,
				HotelCap:                 4000,
				VehicleType:              "four_wheeler",
				FuelEfficiencyKmPerLiter: 15,
			},
			"M1": {
				Grade:          "M1",
				RatePerKm:      14,
				DailyAllowance: 1800,
				DailyAllowanceByLocation: map[string]int64{
					"metro":     2200,
					"non_metro": 1800,
				},
				MonthlyLimit:             60000,
				HotelCap:                 6000,
				VehicleType:              "four_wheeler",
				FuelEfficiencyKmPerLiter: 12,
			},
			"M2": {
				Grade:          "M2",
				RatePerKm:      16,
				DailyAllowance: 2500,
				MonthlyLimit:   100000,
				HotelCap:       10000,
				VehicleType:    "four_wheeler",
				// Senior managers claim fuel on actuals.
				FuelEfficiencyKmPerLiter: 0,
			},
		},
	}
}

// Service looks up grade entitlements. Lookups never fail: unknown grades
// fall back to the default entitlement and baseline limit.
type Service interface {
	Lookup(grade string) Entitlement
	MonthlyLimit(grade string) int64
	// FuelEntitlement returns the computed fuel amount for the distance, or
	// 0 when the grade's efficiency is 0 (actual basis, so callers must not
	// treat 0 as a cap).
	FuelEntitlement(grade string, distanceKm float64) int64
	ManagerGrades() []string
	Grades() []Entitlement
	// Invalidate drops the read cache; the next lookup re-reads the table.
	Invalidate()
}
