package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoDataAvailable is returned when not a single requested symbol yields
// enough weekly data to build a table. Partial coverage is not an error;
// only total failure is.
var ErrNoDataAvailable = errors.New("no data available for any requested symbol")

// ConfigError reports an invalid pipeline parameter. It is returned before
// any fetching starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid pipeline config: %s %s", e.Field, e.Reason)
}
