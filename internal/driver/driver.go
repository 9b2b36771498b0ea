// Package driver implements the Vagrant WinRM driver: it renders a
// Vagrantfile per instance, drives the VM through the vagrant executable and
// runs provisioner and verifier commands through the vagrant-winrm plugin.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kballard/go-shellquote"

	vkerrors "vagrantkit/internal/errors"
	"vagrantkit/internal/provisioner"
	"vagrantkit/internal/vagrantfile"
	"vagrantkit/internal/verifier"
	"vagrantkit/pkg/kitchen"
	"vagrantkit/pkg/runtime"
)

// State is the part of the instance state record owned by the driver.
type State struct {
	Created bool `yaml:"created"`
}

// Driver defines the lifecycle of one test instance.
type Driver interface {
	Create(ctx context.Context, state *State) error
	Converge(ctx context.Context, state *State) error
	Setup(ctx context.Context, state *State) error
	Verify(ctx context.Context, state *State) error
	Destroy(ctx context.Context, state *State) error
	VerifyDependencies(ctx context.Context) error
}

// VagrantWinRM is the Driver bound to a single instance. Values are not safe
// for concurrent use.
type VagrantWinRM struct {
	config      *Config
	instance    *kitchen.Instance
	runner      runtime.CommandRunner
	provisioner provisioner.Provisioner
	verifier    verifier.Verifier
	remote      remoteExecutor
	data        vagrantfile.Data
	out         io.Writer

	vagrantfileWritten bool
}

// New binds the driver to an instance and resolves its configuration.
func New(inst *kitchen.Instance, runner runtime.CommandRunner, prov provisioner.Provisioner, ver verifier.Verifier) (*VagrantWinRM, error) {
	cfg, err := LoadConfig(inst)
	if err != nil {
		return nil, err
	}

	networks, err := vagrantfile.ParseNetwork(cfg.Network)
	if err != nil {
		return nil, vkerrors.NewConfigError("Invalid network setting for "+inst.String(), err.Error(), "", err)
	}
	folders, err := vagrantfile.FinalizeSyncedFolders(cfg.SyncedFolders, inst.Name, cfg.KitchenRoot)
	if err != nil {
		return nil, vkerrors.NewConfigError("Invalid synced_folders setting for "+inst.String(), err.Error(), "", err)
	}

	d := &VagrantWinRM{
		config:      cfg,
		instance:    inst,
		runner:      runner,
		provisioner: prov,
		verifier:    ver,
		out:         os.Stdout,
		data: vagrantfile.Data{
			InstanceName:   inst.Name,
			Box:            cfg.Box,
			BoxURL:         cfg.BoxURL,
			Hostname:       cfg.VMHostname,
			Guest:          cfg.Guest,
			Communicator:   cfg.Communicator,
			Provider:       cfg.Provider,
			Network:        networks,
			SyncedFolders:  folders,
			Customize:      cfg.Customize,
			CustomSettings: cfg.CustomSettings,
		},
	}

	if cfg.RemoteMode == RemoteModeInline {
		d.remote = &inlineExecutor{vagrant: d.vagrant}
	} else {
		d.remote = &uploadExecutor{vagrant: d.vagrant, shell: cfg.RemoteShell, dryRun: cfg.DryRun}
	}

	return d, nil
}

// SetOutput sets where dry-run commands are echoed. The default is stdout.
func (d *VagrantWinRM) SetOutput(w io.Writer) {
	d.out = w
}

// Config returns the resolved configuration.
func (d *VagrantWinRM) Config() *Config {
	return d.config
}

// VagrantRoot returns the directory holding this instance's Vagrantfile.
func (d *VagrantWinRM) VagrantRoot() string {
	return VagrantRoot(d.config.KitchenRoot, d.instance.Name)
}

// Create writes the Vagrantfile and brings the VM up.
func (d *VagrantWinRM) Create(ctx context.Context, state *State) error {
	if err := d.createVagrantfile(); err != nil {
		return err
	}
	if err := d.runPreCreateCommand(ctx); err != nil {
		return err
	}

	args := []string{"up"}
	if !d.config.Provision {
		args = append(args, "--no-provision")
	}
	if d.config.Provider != "" {
		args = append(args, "--provider="+d.config.Provider)
	}
	if _, err := d.vagrant(ctx, args...); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("Vagrant instance %s created.", d.instance))
	state.Created = true
	return nil
}

// Converge uploads the provisioner sandbox and runs the provisioner commands.
// The local sandbox is removed whether or not the run succeeds.
func (d *VagrantWinRM) Converge(ctx context.Context, state *State) error {
	if err := d.createVagrantfile(); err != nil {
		return err
	}

	if err := d.provisioner.CreateSandbox(); err != nil {
		d.cleanupSandbox()
		return vkerrors.NewActionError("Failed to create the provisioner sandbox for "+d.instance.String(), err.Error(), "", err)
	}
	defer d.cleanupSandbox()

	if err := d.runRemote(ctx, d.provisioner.InstallCommand()); err != nil {
		return err
	}
	if err := d.runRemote(ctx, d.provisioner.InitCommand()); err != nil {
		return err
	}
	if _, err := d.vagrant(ctx, "winrm-upload", "-c", d.provisioner.SandboxPath(), d.provisioner.RootPath()); err != nil {
		return err
	}
	if err := d.runRemote(ctx, d.provisioner.PrepareCommand()); err != nil {
		return err
	}
	return d.runRemote(ctx, d.provisioner.RunCommand())
}

// Setup runs the verifier's setup command on the guest.
func (d *VagrantWinRM) Setup(ctx context.Context, state *State) error {
	if err := d.createVagrantfile(); err != nil {
		return err
	}
	return d.runRemote(ctx, d.verifier.SetupCommand())
}

// Verify syncs and runs the tests on the guest.
func (d *VagrantWinRM) Verify(ctx context.Context, state *State) error {
	if err := d.createVagrantfile(); err != nil {
		return err
	}
	if err := d.runRemote(ctx, d.verifier.SyncCommand()); err != nil {
		return err
	}
	return d.runRemote(ctx, d.verifier.RunCommand())
}

// Destroy tears the VM down and removes the vagrant root. It does nothing
// when the state says the instance was never created.
func (d *VagrantWinRM) Destroy(ctx context.Context, state *State) error {
	if !state.Created {
		return nil
	}

	if err := d.createVagrantfile(); err != nil {
		return err
	}
	d.vagrantfileWritten = false

	if _, err := d.vagrant(ctx, "destroy", "-f"); err != nil {
		return err
	}

	root := d.VagrantRoot()
	if err := os.RemoveAll(root); err != nil {
		return vkerrors.NewFileSystemError("Failed to remove "+root, err.Error(), "", err)
	}

	slog.Info(fmt.Sprintf("Vagrant instance %s destroyed.", d.instance))
	state.Created = false
	return nil
}

func (d *VagrantWinRM) createVagrantfile() error {
	if d.vagrantfileWritten {
		return nil
	}

	path, err := vagrantfile.Write(d.VagrantRoot(), d.config.VagrantfileTemplate, d.data)
	if err != nil {
		return err
	}
	slog.Debug("Vagrantfile written", "instance", d.instance.Name, "path", path)
	d.vagrantfileWritten = true
	return nil
}

func (d *VagrantWinRM) runPreCreateCommand(ctx context.Context) error {
	if d.config.PreCreateCommand == "" {
		return nil
	}
	_, err := d.run(ctx, runtime.RunOptions{
		Command:          runtime.ShellCommand(d.config.PreCreateCommand),
		WorkingDirectory: d.config.KitchenRoot,
	})
	return err
}

func (d *VagrantWinRM) runRemote(ctx context.Context, command string) error {
	return d.remote.RunRemote(ctx, command)
}

func (d *VagrantWinRM) cleanupSandbox() {
	if err := d.provisioner.CleanupSandbox(); err != nil {
		slog.Warn("Failed to clean up provisioner sandbox", "instance", d.instance.Name, "error", err)
	}
}

// vagrant runs a vagrant subcommand inside the vagrant root.
func (d *VagrantWinRM) vagrant(ctx context.Context, args ...string) (string, error) {
	return d.run(ctx, runtime.RunOptions{
		Command:          append([]string{"vagrant"}, args...),
		WorkingDirectory: d.VagrantRoot(),
		EnvVars:          map[string]string{"VAGRANT_CWD": d.VagrantRoot()},
	})
}

// run executes a command, or only echoes it in dry-run mode.
func (d *VagrantWinRM) run(ctx context.Context, opts runtime.RunOptions) (string, error) {
	line := shellquote.Join(opts.Command...)
	if d.config.DryRun {
		slog.Info("Dry run", "instance", d.instance.Name, "command", line)
		fmt.Fprintln(d.out, line)
		return "", nil
	}

	out, err := d.runner.Run(ctx, opts)
	if err != nil {
		return out, commandFailure(line, err)
	}
	return out, nil
}

func commandFailure(line string, err error) error {
	if errors.Is(err, runtime.ErrExecutableNotFound) {
		return vkerrors.NewDependencyMissingError(
			fmt.Sprintf("Could not run [%s]", line),
			"Install Vagrant 1.6.0 or higher from "+VagrantDownloadURL,
			err,
		)
	}

	cause := err.Error()
	var cmdErr *runtime.CommandError
	if errors.As(err, &cmdErr) {
		cause = fmt.Sprintf("exit status %d", cmdErr.ExitCode)
		if cmdErr.Stderr != "" {
			cause += ": " + cmdErr.Stderr
		}
	}
	return vkerrors.NewCommandError(
		fmt.Sprintf("Command [%s] failed", line),
		cause,
		"Check the command output above and the generated Vagrantfile",
		err,
	)
}
