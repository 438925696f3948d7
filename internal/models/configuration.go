package models

import "time"

// ConfigurationType defines supported types for configuration values.
type ConfigurationType string

const (
	ConfigurationTypeDate    ConfigurationType = "DATE"
	ConfigurationTypeDecimal ConfigurationType = "DECIMAL"
)

// Configuration keys backing GlobalDiscountSettings.
const (
	ConfigKeyScholarshipDeadline = "scholarship_deadline"
	ConfigKeyReductionPercentage = "reduction_percentage"
)

// DateLayout is the storage and wire layout of date-only values.
const DateLayout = "2006-01-02"

// Configuration represents a persisted configuration entry.
type Configuration struct {
	Key         string            `db:"key" json:"key"`
	Value       string            `db:"value" json:"value"`
	Type        ConfigurationType `db:"type" json:"type"`
	Description *string           `db:"description" json:"description,omitempty"`
	UpdatedBy   *string           `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}
