package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level finsight.yaml configuration. Every numeric
// threshold the pipeline relies on lives here so tuning never requires a
// code change.
type Config struct {
	Ledger    LedgerConfig    `yaml:"ledger"`
	Learning  LearningConfig  `yaml:"learning"`
	Detection DetectionConfig `yaml:"detection"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Actions   ActionsConfig   `yaml:"actions"`
}

// LedgerConfig controls deduplication and transfer pairing.
type LedgerConfig struct {
	TransferWindowDays      int     `yaml:"transfer_window_days"`
	NearDupWindowDays       int     `yaml:"near_dup_window_days"`
	NearDupMaxDistanceRatio float64 `yaml:"near_dup_max_distance_ratio"`
}

// LearningConfig controls rule promotion and confidence decay.
type LearningConfig struct {
	PromoteThreshold int     `yaml:"promote_threshold"`
	ConfidenceFloor  float64 `yaml:"confidence_floor"`
	DecayFactor      float64 `yaml:"decay_factor"`
	ReinforceStep    float64 `yaml:"reinforce_step"`
}

// DetectionConfig controls recurring-series and anomaly detection.
type DetectionConfig struct {
	MinRecurringOccurrences int     `yaml:"min_recurring_occurrences"`
	PeriodTolerancePct      float64 `yaml:"period_tolerance_pct"`
	MinPeriodToleranceDays  int     `yaml:"min_period_tolerance_days"`
	AmountTolerancePct      float64 `yaml:"amount_tolerance_pct"`
	MADMultiplier           float64 `yaml:"mad_multiplier"`
}

// ForecastConfig controls run-rate extrapolation.
type ForecastConfig struct {
	RunRateWindowDays int   `yaml:"run_rate_window_days"`
	HorizonsDays      []int `yaml:"horizons_days"`
}

// ActionsConfig controls the prioritized action queue.
type ActionsConfig struct {
	MaterialityThreshold     string  `yaml:"materiality_threshold"` // decimal string, e.g. "25.00"
	QualityFloor             float64 `yaml:"quality_floor"`
	MissedRecurringGraceDays int     `yaml:"missed_recurring_grace_days"`
}

// Load reads a finsight.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the documented default tunables. The original
// tuning is approximate; everything here is meant to be adjusted per ledger.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			TransferWindowDays:      3,
			NearDupWindowDays:       3,
			NearDupMaxDistanceRatio: 0.35,
		},
		Learning: LearningConfig{
			PromoteThreshold: 2,
			ConfidenceFloor:  0.2,
			DecayFactor:      0.6,
			ReinforceStep:    0.2,
		},
		Detection: DetectionConfig{
			MinRecurringOccurrences: 3,
			PeriodTolerancePct:      0.15,
			MinPeriodToleranceDays:  2,
			AmountTolerancePct:      0.2,
			MADMultiplier:           3.5,
		},
		Forecast: ForecastConfig{
			RunRateWindowDays: 90,
			HorizonsDays:      []int{30, 60, 90},
		},
		Actions: ActionsConfig{
			MaterialityThreshold:     "25.00",
			QualityFloor:             0.8,
			MissedRecurringGraceDays: 3,
		},
	}
}
