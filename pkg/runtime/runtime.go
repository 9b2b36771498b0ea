// Located in pkg/runtime/runtime.go
package runtime

import (
	"context"
	"errors"
	"fmt"
	goruntime "runtime"
)

// ErrExecutableNotFound is returned when the command's executable is not on PATH.
var ErrExecutableNotFound = errors.New("executable not found")

// RunOptions defines the parameters for running an external command.
type RunOptions struct {
	Command          []string
	WorkingDirectory string
	EnvVars          map[string]string

	// Quiet logs command output at debug level instead of info.
	Quiet bool
}

// CommandRunner defines the contract for external command execution.
// Run returns the captured standard output.
type CommandRunner interface {
	Run(ctx context.Context, opts RunOptions) (string, error)
}

// CommandError reports a command that ran and exited unsuccessfully.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("command %q exited with status %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// ShellCommand wraps a command line so it is interpreted by the platform shell.
func ShellCommand(line string) []string {
	if goruntime.GOOS == "windows" {
		return []string{"cmd", "/C", line}
	}
	return []string{"sh", "-c", line}
}
