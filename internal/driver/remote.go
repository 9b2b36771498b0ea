package driver

import (
	"context"
	"fmt"
	"os"
	"strings"

	vkerrors "vagrantkit/internal/errors"
)

type vagrantFunc func(ctx context.Context, args ...string) (string, error)

// remoteExecutor runs a shell command on the guest. Empty commands are skipped.
type remoteExecutor interface {
	RunRemote(ctx context.Context, command string) error
}

// uploadExecutor copies the command to the guest as a script and runs it
// with the configured shell.
type uploadExecutor struct {
	vagrant vagrantFunc
	shell   string

	// dryRun tolerates an upload that printed no remote path.
	dryRun bool
}

func (e *uploadExecutor) RunRemote(ctx context.Context, command string) error {
	if strings.TrimSpace(command) == "" {
		return nil
	}

	tmp, err := os.CreateTemp("", "script*.sh")
	if err != nil {
		return vkerrors.NewFileSystemError("Failed to create a temporary script", err.Error(), "", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(command); err != nil {
		tmp.Close()
		return vkerrors.NewFileSystemError("Failed to write "+tmp.Name(), err.Error(), "", err)
	}
	if err := tmp.Close(); err != nil {
		return vkerrors.NewFileSystemError("Failed to write "+tmp.Name(), err.Error(), "", err)
	}

	out, err := e.vagrant(ctx, "winrm-upload", "-t", tmp.Name())
	if err != nil {
		return err
	}

	remotePath := lastLine(out)
	if remotePath == "" {
		if !e.dryRun {
			return vkerrors.NewCommandError(
				"vagrant winrm-upload printed no remote path for "+tmp.Name(),
				"the upload finished without reporting where the script was stored",
				"Check that the vagrant-winrm plugin is "+MinPluginVersion+" or higher",
				nil,
			)
		}
		remotePath = tmp.Name()
	}

	_, err = e.vagrant(ctx, "winrm", "-c", fmt.Sprintf(`%s "%s"`, e.shell, remotePath))
	return err
}

// inlineExecutor passes the command to vagrant winrm as a single argument.
type inlineExecutor struct {
	vagrant vagrantFunc
}

func (e *inlineExecutor) RunRemote(ctx context.Context, command string) error {
	if strings.TrimSpace(command) == "" {
		return nil
	}
	_, err := e.vagrant(ctx, "winrm", "-c", command)
	return err
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
