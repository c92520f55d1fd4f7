package supervisor

import "fmt"

// LaunchError reports a child that could not be started at all, e.g.
// because the executable does not exist.
type LaunchError struct {
	Name    string
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s (%s): %v", e.Name, e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
