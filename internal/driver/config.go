package driver

import (
	"os"
	"path/filepath"
	"strings"

	vkerrors "vagrantkit/internal/errors"
	"vagrantkit/internal/parser"
	"vagrantkit/pkg/kitchen"
)

const (
	// Name is the driver name accepted in the kitchen file.
	Name = "vagrant_winrm"

	RemoteModeUpload = "upload"
	RemoteModeInline = "inline"

	vagrantRootToken = "{{vagrant_root}}"
)

// Config is the resolved driver configuration for one instance.
type Config struct {
	Name                string                 `mapstructure:"name" validate:"omitempty,eq=vagrant_winrm"`
	Box                 string                 `mapstructure:"box" validate:"required"`
	BoxURL              string                 `mapstructure:"box_url"`
	Communicator        string                 `mapstructure:"communicator" validate:"required"`
	CustomSettings      map[string]interface{} `mapstructure:"custom_settings"`
	Customize           map[string]interface{} `mapstructure:"customize"`
	Guest               string                 `mapstructure:"guest" validate:"required"`
	Network             []interface{}          `mapstructure:"network"`
	PreCreateCommand    string                 `mapstructure:"pre_create_command"`
	RequireChefOmnibus  bool                   `mapstructure:"require_chef_omnibus"`
	SyncedFolders       []interface{}          `mapstructure:"synced_folders"`
	Provision           bool                   `mapstructure:"provision"`
	VagrantfileTemplate string                 `mapstructure:"vagrantfile_erb"`
	Provider            string                 `mapstructure:"provider"`
	VMHostname          string                 `mapstructure:"vm_hostname"`
	DryRun              bool                   `mapstructure:"dry_run"`
	RemoteMode          string                 `mapstructure:"remote_mode" validate:"oneof=upload inline"`
	RemoteShell         string                 `mapstructure:"remote_shell" validate:"required"`
	KitchenRoot         string                 `mapstructure:"kitchen_root" validate:"required"`
}

// defaults returns the built-in driver settings for an instance.
func defaults(inst *kitchen.Instance) kitchen.Bag {
	provider := os.Getenv("VAGRANT_DEFAULT_PROVIDER")
	if provider == "" {
		provider = "virtualbox"
	}

	return kitchen.Bag{
		"communicator":    "winrm",
		"custom_settings": map[string]interface{}{},
		"customize": map[string]interface{}{
			"vrde":         "on",
			"vrdeport":     "5000-5100",
			"vrdeauthtype": "null",
		},
		"guest":                "windows",
		"network":              []interface{}{},
		"require_chef_omnibus": false,
		"synced_folders":       []interface{}{},
		"provision":            false,
		"provider":             provider,
		"vm_hostname":          inst.Name,
		"box":                  "opscode-" + inst.PlatformName,
		"remote_mode":          RemoteModeUpload,
		"remote_shell":         "sh",
		"kitchen_root":         inst.Root,
	}
}

// withDefaults fills every key the user left unset or null. Values are
// replaced whole, so a user customize map does not inherit default entries.
func withDefaults(bag kitchen.Bag, inst *kitchen.Instance) kitchen.Bag {
	out := make(kitchen.Bag, len(bag))
	for k, v := range bag {
		out[k] = v
	}
	for k, v := range defaults(inst) {
		if cur, ok := out[k]; !ok || cur == nil {
			out[k] = v
		}
	}
	return out
}

// LoadConfig applies defaults to the instance's driver bag, decodes and
// validates it, and resolves paths that depend on the kitchen root.
func LoadConfig(inst *kitchen.Instance) (*Config, error) {
	var cfg Config
	if err := parser.DecodeBag(withDefaults(inst.Driver, inst), &cfg); err != nil {
		return nil, vkerrors.NewConfigError(
			"Invalid driver configuration for "+inst.String(),
			err.Error(),
			"Fix the driver section of the kitchen file",
			err,
		)
	}

	if cfg.VagrantfileTemplate != "" && !filepath.IsAbs(cfg.VagrantfileTemplate) {
		cfg.VagrantfileTemplate = filepath.Join(cfg.KitchenRoot, cfg.VagrantfileTemplate)
	}
	if cfg.PreCreateCommand != "" {
		cfg.PreCreateCommand = strings.ReplaceAll(cfg.PreCreateCommand, vagrantRootToken, VagrantRoot(cfg.KitchenRoot, inst.Name))
	}

	return &cfg, nil
}

// VagrantRoot is the directory holding an instance's Vagrantfile.
func VagrantRoot(kitchenRoot, instanceName string) string {
	return filepath.Join(kitchenRoot, ".kitchen", "kitchen-vagrant", instanceName)
}
