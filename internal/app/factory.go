package app

import (
	"fmt"
	"io"
	"os"

	"vagrantkit/internal/driver"
	"vagrantkit/internal/provisioner"
	"vagrantkit/internal/verifier"
	"vagrantkit/pkg/kitchen"
	"vagrantkit/pkg/runtime"
)

// Factory builds the driver for an instance.
type Factory interface {
	GetDriver(inst *kitchen.Instance) (driver.Driver, error)
}

// ProviderFactory creates drivers, provisioners and verifiers from the
// "name" key of each configuration section.
type ProviderFactory struct {
	runner runtime.CommandRunner
	dryRun bool
	out    io.Writer
}

// NewProviderFactory creates a factory whose drivers run commands with runner.
// In dry-run mode drivers echo their commands to out instead.
func NewProviderFactory(runner runtime.CommandRunner, dryRun bool, out io.Writer) *ProviderFactory {
	if out == nil {
		out = os.Stdout
	}
	return &ProviderFactory{runner: runner, dryRun: dryRun, out: out}
}

// GetDriver returns the driver named in the instance's driver section.
func (f *ProviderFactory) GetDriver(inst *kitchen.Instance) (driver.Driver, error) {
	name := nameOrDefault(inst.Driver, driver.Name)
	if name != driver.Name {
		return nil, fmt.Errorf("unsupported driver: %s", name)
	}

	prov, err := f.GetProvisioner(inst)
	if err != nil {
		return nil, err
	}
	ver, err := f.GetVerifier(inst)
	if err != nil {
		return nil, err
	}

	bound := *inst
	if f.dryRun {
		bound.Driver = inst.Driver.Merge(kitchen.Bag{"dry_run": true})
	}

	d, err := driver.New(&bound, f.runner, prov, ver)
	if err != nil {
		return nil, err
	}
	d.SetOutput(f.out)
	return d, nil
}

// GetProvisioner returns the provisioner named in the instance's provisioner section.
func (f *ProviderFactory) GetProvisioner(inst *kitchen.Instance) (provisioner.Provisioner, error) {
	switch name := nameOrDefault(inst.Provisioner, "shell"); name {
	case "shell":
		p, err := provisioner.NewShellProvisioner(inst)
		if err != nil {
			return nil, fmt.Errorf("failed to create shell provisioner: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported provisioner: %s", name)
	}
}

// GetVerifier returns the verifier named in the instance's verifier section.
func (f *ProviderFactory) GetVerifier(inst *kitchen.Instance) (verifier.Verifier, error) {
	switch name := nameOrDefault(inst.Verifier, "shell"); name {
	case "shell":
		v, err := verifier.NewShellVerifier(inst)
		if err != nil {
			return nil, fmt.Errorf("failed to create shell verifier: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported verifier: %s", name)
	}
}

func nameOrDefault(bag kitchen.Bag, fallback string) string {
	if name := bag.String("name"); name != "" {
		return name
	}
	return fallback
}
