package validation

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config carries every tunable threshold the validators use. It is threaded
// explicitly into the runner; there is no global state.
type Config struct {
	// PriceTolerance is the absolute difference under which an invoice price
	// counts as an exact match against the authorized price.
	PriceTolerance float64 `toml:"price_tolerance"`

	// Critical price discrepancy triggers: either condition is sufficient.
	CriticalPercent  float64 `toml:"critical_percent"`
	CriticalAbsolute float64 `toml:"critical_absolute"`

	// Warning price discrepancy triggers: either condition is sufficient.
	WarningPercent  float64 `toml:"warning_percent"`
	WarningAbsolute float64 `toml:"warning_absolute"`

	// Price reasonableness bounds.
	MinReasonablePrice float64 `toml:"min_reasonable_price"`
	MaxReasonablePrice float64 `toml:"max_reasonable_price"`

	// Invoice date sanity windows, in days.
	FutureDateDays int `toml:"future_date_days"`
	StaleDateDays  int `toml:"stale_date_days"`

	// Part number format bounds.
	PartNumberMinLength int `toml:"part_number_min_length"`
	PartNumberMaxLength int `toml:"part_number_max_length"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		PriceTolerance:      0.001,
		CriticalPercent:     20,
		CriticalAbsolute:    5.00,
		WarningPercent:      5,
		WarningAbsolute:     1.00,
		MinReasonablePrice:  0.01,
		MaxReasonablePrice:  1000,
		FutureDateDays:      30,
		StaleDateDays:       365,
		PartNumberMinLength: 2,
		PartNumberMaxLength: 20,
	}
}

// LoadConfig overlays a TOML file onto the defaults. Keys absent from the
// file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PriceTolerance < 0 {
		return fmt.Errorf("price_tolerance must not be negative")
	}
	if c.CriticalPercent < c.WarningPercent {
		return fmt.Errorf("critical_percent must be at least warning_percent")
	}
	if c.CriticalAbsolute < c.WarningAbsolute {
		return fmt.Errorf("critical_absolute must be at least warning_absolute")
	}
	if c.PartNumberMinLength < 1 || c.PartNumberMaxLength < c.PartNumberMinLength {
		return fmt.Errorf("part number length bounds are inconsistent")
	}
	return nil
}
