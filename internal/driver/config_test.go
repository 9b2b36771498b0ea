package driver

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vkerrors "vagrantkit/internal/errors"
	"vagrantkit/pkg/kitchen"
)

func TestLoadConfig_Defaults(t *testing.T) {
	inst := newInstance(t, nil)

	cfg, err := LoadConfig(inst)
	require.NoError(t, err)

	assert.Equal(t, "opscode-windows-2012r2", cfg.Box)
	assert.Equal(t, "winrm", cfg.Communicator)
	assert.Equal(t, "windows", cfg.Guest)
	assert.Equal(t, "virtualbox", cfg.Provider)
	assert.Equal(t, "default-windows-2012r2", cfg.VMHostname)
	assert.Equal(t, map[string]interface{}{
		"vrde":         "on",
		"vrdeport":     "5000-5100",
		"vrdeauthtype": "null",
	}, cfg.Customize)
	assert.Empty(t, cfg.CustomSettings)
	assert.Empty(t, cfg.Network)
	assert.Empty(t, cfg.SyncedFolders)
	assert.False(t, cfg.Provision)
	assert.False(t, cfg.RequireChefOmnibus)
	assert.Empty(t, cfg.PreCreateCommand)
	assert.Empty(t, cfg.VagrantfileTemplate)
	assert.Equal(t, RemoteModeUpload, cfg.RemoteMode)
	assert.Equal(t, "sh", cfg.RemoteShell)
	assert.Equal(t, inst.Root, cfg.KitchenRoot)
}

func TestLoadConfig_UserValuesReplaceDefaults(t *testing.T) {
	inst := newInstance(t, kitchen.Bag{
		"box":         "windows-2012r2",
		"customize":   map[string]interface{}{"memory": 2048},
		"vm_hostname": nil,
		"provision":   "true",
	})

	cfg, err := LoadConfig(inst)
	require.NoError(t, err)

	assert.Equal(t, "windows-2012r2", cfg.Box)
	assert.Equal(t, map[string]interface{}{"memory": 2048}, cfg.Customize)
	assert.Equal(t, "default-windows-2012r2", cfg.VMHostname)
	assert.True(t, cfg.Provision)
}

func TestLoadConfig_ResolvesPaths(t *testing.T) {
	inst := newInstance(t, kitchen.Bag{
		"vagrantfile_erb":    "templates/Vagrantfile.tmpl",
		"pre_create_command": "cp a {{vagrant_root}}/b && ls {{vagrant_root}}",
	})
	root := VagrantRoot(inst.Root, inst.Name)

	cfg, err := LoadConfig(inst)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(inst.Root, "templates", "Vagrantfile.tmpl"), cfg.VagrantfileTemplate)
	assert.Equal(t, "cp a "+root+"/b && ls "+root, cfg.PreCreateCommand)
}

func TestLoadConfig_AbsoluteTemplateUnchanged(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "Vagrantfile.tmpl")
	inst := newInstance(t, kitchen.Bag{"vagrantfile_erb": abs})

	cfg, err := LoadConfig(inst)
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.VagrantfileTemplate)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		bag  kitchen.Bag
	}{
		{name: "unknown remote mode", bag: kitchen.Bag{"remote_mode": "ssh"}},
		{name: "wrong driver name", bag: kitchen.Bag{"name": "docker"}},
		{name: "empty box", bag: kitchen.Bag{"box": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(newInstance(t, tt.bag))
			require.Error(t, err)
			assert.True(t, errors.Is(err, vkerrors.ErrConfigInvalid))
		})
	}
}

func TestVagrantRoot(t *testing.T) {
	assert.Equal(t,
		filepath.Join("/work", ".kitchen", "kitchen-vagrant", "default-windows-81"),
		VagrantRoot("/work", "default-windows-81"))
}
