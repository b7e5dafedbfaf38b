// Package policy evaluates refund eligibility as a pure function of order
// data and a fixed, versioned policy configuration.
package policy

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/clearway-labs/refunddesk/pkg/catalog"
)

// Config is the versioned refund policy document.
type Config struct {
	RefundWindowDays     int                     `yaml:"refund_window_days" json:"refund_window_days"`
	AllowedConditions    []catalog.ItemCondition `yaml:"allowed_conditions" json:"allowed_conditions"`
	RestockingFeePercent float64                 `yaml:"restocking_fee_percent" json:"restocking_fee_percent"`
	ExcludedCategories   []string                `yaml:"excluded_categories" json:"excluded_categories"`
	MinRefundAmount      float64                 `yaml:"min_refund_amount" json:"min_refund_amount"`
	PolicyVersion        string                  `yaml:"policy_version" json:"policy_version"`
	EffectiveDate        string                  `yaml:"effective_date" json:"effective_date"`
}

// Default returns the built-in policy.
func Default() Config {
	return Config{
		RefundWindowDays:     30,
		AllowedConditions:    []catalog.ItemCondition{catalog.ConditionUnopened, catalog.ConditionDefective, catalog.ConditionWrongItem},
		RestockingFeePercent: 10,
		ExcludedCategories:   []string{"digital_goods", "gift_cards"},
		MinRefundAmount:      0.01,
		PolicyVersion:        "1.0",
		EffectiveDate:        "2025-01-01",
	}
}

// LoadFile reads and validates a policy document from a YAML file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load policy %q: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse policy %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid policy %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the policy document for internal consistency.
func (c Config) Validate() error {
	if c.RefundWindowDays <= 0 {
		return fmt.Errorf("refund_window_days must be positive, got %d", c.RefundWindowDays)
	}
	if c.RestockingFeePercent < 0 || c.RestockingFeePercent > 100 {
		return fmt.Errorf("restocking_fee_percent must be within [0,100], got %v", c.RestockingFeePercent)
	}
	if c.MinRefundAmount < 0 {
		return fmt.Errorf("min_refund_amount must not be negative, got %v", c.MinRefundAmount)
	}
	if _, err := semver.NewVersion(c.PolicyVersion); err != nil {
		return fmt.Errorf("policy_version %q is not a valid version: %w", c.PolicyVersion, err)
	}
	return nil
}

// conditionAllowed reports whether a condition refunds without penalty.
func (c Config) conditionAllowed(cond catalog.ItemCondition) bool {
	for _, allowed := range c.AllowedConditions {
		if cond == allowed {
			return true
		}
	}
	return false
}
