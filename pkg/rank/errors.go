package rank

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecord marks a malformed source record. It is absorbed
	// by the aggregator and only shows up in the per-source counts.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidRank is returned by Score for non-positive ranks.
	ErrInvalidRank = fmt.Errorf("%w: rank must be positive", ErrInvalidRecord)

	// ErrNoData is returned when there is nothing valid to aggregate.
	ErrNoData = errors.New("no data to aggregate")

	// ErrConfiguration marks invalid aggregation settings.
	ErrConfiguration = errors.New("invalid configuration")
)

// ConfigError describes a rejected setting. It unwraps to ErrConfiguration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

func newConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}
