package reporting

import (
	"fmt"
	"os"
	"os/exec"
)

// Restarter relaunches the hosting process
type Restarter interface {
	Restart() error
}

// RestartFunc adapts a function to the Restarter interface
type RestartFunc func() error

func (f RestartFunc) Restart() error {
	return f()
}

// ExecRestarter starts a new copy of the running executable with the same
// arguments and environment, then exits the current process.
type ExecRestarter struct {
	// Args replaces os.Args[1:] when non-nil
	Args []string
	// Exit defaults to os.Exit
	Exit func(code int)
}

func (r *ExecRestarter) Restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	args := r.Args
	if args == nil {
		args = os.Args[1:]
	}

	cmd := exec.Command(exe, args...)
	cmd.Env = os.Environ()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", exe, err)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("release child process: %w", err)
	}

	exit := r.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(0)
	return nil
}
