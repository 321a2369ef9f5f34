package promptengine

import "fmt"

// UnresolvedVariableError reports a $TOKEN with no registered handler.
type UnresolvedVariableError struct {
	Name string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("promptengine: variable $%s is not recognized", e.Name)
}

// MissingValueError reports a handler whose lookup produced no data,
// typically because no location is configured.
type MissingValueError struct {
	Name string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("promptengine: no value available for $%s", e.Name)
}
