package sim

import "fmt"

// ConfigError reports an invalid parameter detected before integration starts.
type ConfigError struct {
	Field   string
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// NumericalError reports non-finite state during integration. The run aborts
// but the partial series produced so far is still returned for diagnostics.
type NumericalError struct {
	Time float64
	Step int
}

func (e NumericalError) Error() string {
	return fmt.Sprintf("non-finite state at step %d (t=%.4f)", e.Step, e.Time)
}

// ConstraintError reports a violated structural invariant, such as a
// coefficient matrix entry switching sign or a trophic partition that does
// not cover all species.
type ConstraintError struct {
	Message string
}

func (e ConstraintError) Error() string {
	return "constraint violated: " + e.Message
}
