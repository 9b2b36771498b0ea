// Package verifier supplies the commands a driver runs to set up and execute
// the instance's test suite.
package verifier

import (
	"fmt"

	"vagrantkit/internal/parser"
	"vagrantkit/pkg/kitchen"
)

// Verifier returns guest commands for each verification phase.
// An empty command means the phase is skipped.
type Verifier interface {
	SetupCommand() string
	SyncCommand() string
	RunCommand() string
}

// ShellConfig is the verifier configuration bag for the shell verifier.
type ShellConfig struct {
	Name         string `mapstructure:"name" validate:"omitempty,eq=shell"`
	SetupCommand string `mapstructure:"setup_command"`
	SyncCommand  string `mapstructure:"sync_command"`
	RunCommand   string `mapstructure:"run_command"`
}

// ShellVerifier runs user-supplied commands on the guest.
type ShellVerifier struct {
	config ShellConfig
}

func NewShellVerifier(inst *kitchen.Instance) (*ShellVerifier, error) {
	var cfg ShellConfig
	if err := parser.DecodeBag(inst.Verifier, &cfg); err != nil {
		return nil, fmt.Errorf("invalid shell verifier configuration: %w", err)
	}
	return &ShellVerifier{config: cfg}, nil
}

func (v *ShellVerifier) SetupCommand() string { return v.config.SetupCommand }
func (v *ShellVerifier) SyncCommand() string  { return v.config.SyncCommand }
func (v *ShellVerifier) RunCommand() string   { return v.config.RunCommand }
