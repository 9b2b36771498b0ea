package provisioner

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/kballard/go-shellquote"

	"vagrantkit/internal/parser"
	"vagrantkit/pkg/kitchen"
)

const (
	// DefaultRootPath is where the sandbox lands on the guest.
	DefaultRootPath = "/tmp/kitchen"

	// DefaultScript is looked up in the kitchen root when no script is configured.
	DefaultScript = "bootstrap.sh"
)

// ShellConfig is the provisioner configuration bag for the shell provisioner.
type ShellConfig struct {
	Name           string `mapstructure:"name" validate:"omitempty,eq=shell"`
	Script         string `mapstructure:"script"`
	DataPath       string `mapstructure:"data_path"`
	RootPath       string `mapstructure:"root_path"`
	InstallCommand string `mapstructure:"install_command"`
	Sudo           bool   `mapstructure:"sudo"`
}

// ShellProvisioner uploads a script and an optional data directory and runs
// the script with sh on the guest.
type ShellProvisioner struct {
	config       ShellConfig
	instanceName string
	kitchenRoot  string
	sandbox      string
}

// NewShellProvisioner decodes the instance's provisioner bag.
func NewShellProvisioner(inst *kitchen.Instance) (*ShellProvisioner, error) {
	var cfg ShellConfig
	if err := parser.DecodeBag(inst.Provisioner, &cfg); err != nil {
		return nil, fmt.Errorf("invalid shell provisioner configuration: %w", err)
	}

	if cfg.RootPath == "" {
		cfg.RootPath = DefaultRootPath
	}
	if cfg.Script == "" {
		if _, err := os.Stat(filepath.Join(inst.Root, DefaultScript)); err == nil {
			cfg.Script = DefaultScript
		}
	}
	if cfg.Script != "" && !filepath.IsAbs(cfg.Script) {
		cfg.Script = filepath.Join(inst.Root, cfg.Script)
	}
	if cfg.DataPath != "" && !filepath.IsAbs(cfg.DataPath) {
		cfg.DataPath = filepath.Join(inst.Root, cfg.DataPath)
	}

	return &ShellProvisioner{
		config:       cfg,
		instanceName: inst.Name,
		kitchenRoot:  inst.Root,
	}, nil
}

func (p *ShellProvisioner) CreateSandbox() error {
	dir, err := os.MkdirTemp("", p.instanceName+"-sandbox-")
	if err != nil {
		return fmt.Errorf("failed to create sandbox: %w", err)
	}
	p.sandbox = dir
	slog.Debug("Created local sandbox", "instance", p.instanceName, "path", dir)

	if p.config.Script != "" {
		if _, err := os.Stat(p.config.Script); err != nil {
			return fmt.Errorf("provisioner script not found: %s", p.config.Script)
		}
		if err := copyFile(p.config.Script, filepath.Join(dir, filepath.Base(p.config.Script))); err != nil {
			return fmt.Errorf("failed to stage provisioner script: %w", err)
		}
	} else {
		slog.Warn("No provisioner script configured, nothing will run", "instance", p.instanceName)
	}

	if p.config.DataPath != "" {
		if err := copyDirectory(p.config.DataPath, filepath.Join(dir, "data")); err != nil {
			return fmt.Errorf("failed to stage provisioner data: %w", err)
		}
	}

	return nil
}

func (p *ShellProvisioner) SandboxPath() string {
	return p.sandbox
}

func (p *ShellProvisioner) RootPath() string {
	return p.config.RootPath
}

func (p *ShellProvisioner) InstallCommand() string {
	return p.config.InstallCommand
}

func (p *ShellProvisioner) InitCommand() string {
	root := shellquote.Join(p.config.RootPath)
	return fmt.Sprintf("rm -rf %s ; mkdir -p %s", root, root)
}

func (p *ShellProvisioner) PrepareCommand() string {
	return ""
}

func (p *ShellProvisioner) RunCommand() string {
	if p.config.Script == "" {
		return ""
	}

	args := []string{"sh", path.Join(p.config.RootPath, filepath.Base(p.config.Script))}
	if p.config.Sudo {
		args = append([]string{"sudo", "-E"}, args...)
	}
	return fmt.Sprintf("cd %s && %s", shellquote.Join(p.config.RootPath), shellquote.Join(args...))
}

func (p *ShellProvisioner) CleanupSandbox() error {
	if p.sandbox == "" {
		return nil
	}
	slog.Debug("Cleaning up local sandbox", "instance", p.instanceName, "path", p.sandbox)
	if err := os.RemoveAll(p.sandbox); err != nil {
		return fmt.Errorf("failed to remove sandbox: %w", err)
	}
	p.sandbox = ""
	return nil
}
