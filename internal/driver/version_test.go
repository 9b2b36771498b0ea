package driver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	vkerrors "vagrantkit/internal/errors"
	"vagrantkit/pkg/kitchen"
	"vagrantkit/pkg/runtime"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.6.0", "1.6.0", 0},
		{"1.6", "1.6.0", 0},
		{"1.6.0.0", "1.6", 0},
		{"1.5.4", "1.6.0", -1},
		{"1.10.0", "1.6.0", 1},
		{"2.2.19", "1.6.0", 1},
		{"1.6.0.1", "1.6.0", 1},
		{"1.6.0.dev", "1.6.0", -1},
		{"1.6.0.rc2", "1.6.0.rc1", 1},
		{"1.6.0-rc1", "1.6.0", -1},
		{"1.7.0.dev", "1.6.0", 1},
		{"0.3.1", "0.4.0", -1},
		{"0.7.0", "0.4.0", 1},
		{"v1.6.0", "1.6.0", 0},
		{"1.6.0.rc10", "1.6.0.rc9", 1},
		{"1.7a", "1.6.0", 1},
		{"1.6.0.a", "1.6.0.b", -1},
		{"1.6.0.rc1", "1.6.0.rc1.0", 0},
		{"1.6.1.rc1", "1.6.0.9", 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s vs %s", tt.a, tt.b), func(t *testing.T) {
			got, err := CompareVersions(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareVersions_Malformed(t *testing.T) {
	for _, v := range []string{"", "abc", "1..2", "1.6.0 beta"} {
		_, err := CompareVersions(v, "1.6.0")
		assert.Error(t, err, v)
	}
}

func quietCommand(args ...string) interface{} {
	return mock.MatchedBy(func(o runtime.RunOptions) bool {
		return o.Quiet && fmt.Sprint(o.Command) == fmt.Sprint(args)
	})
}

func TestVerifyDependencies(t *testing.T) {
	missing := fmt.Errorf("vagrant: %w", runtime.ErrExecutableNotFound)
	failed := &runtime.CommandError{Command: "vagrant winrm --plugin-version", ExitCode: 1}

	tests := []struct {
		name       string
		vagrantOut string
		vagrantErr error
		pluginOut  string
		pluginErr  error
		wantType   error
		wantMsg    string
	}{
		{
			name:       "supported versions",
			vagrantOut: "Vagrant 1.7.2\n",
			pluginOut:  "0.7.0\n",
		},
		{
			name:       "vagrant missing",
			vagrantErr: missing,
			wantType:   vkerrors.ErrDependencyMissing,
			wantMsg:    "Vagrant 1.6.0 or higher is not installed.\nPlease download a package from http://downloads.vagrantup.com/.",
		},
		{
			name:       "vagrant outdated",
			vagrantOut: "Vagrant 1.5.4\n",
			wantType:   vkerrors.ErrDependencyOutdated,
			wantMsg:    "Detected an old version of Vagrant (1.5.4).\nPlease upgrade to version 1.6.0 or higher from http://downloads.vagrantup.com/.",
		},
		{
			name:       "plugin missing",
			vagrantOut: "Vagrant 1.6.0\n",
			pluginErr:  failed,
			wantType:   vkerrors.ErrDependencyMissing,
			wantMsg:    "Vagrant-winrm 0.4.0 or higher is not installed.",
		},
		{
			name:       "plugin outdated",
			vagrantOut: "Vagrant 1.6.0\n",
			pluginOut:  "0.3.1\n",
			wantType:   vkerrors.ErrDependencyOutdated,
			wantMsg:    "Detected an old version of Vagrant-winrm (0.3.1).\nPlease upgrade to version 0.4.0 or higher.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(mockRunner)
			runner.On("Run", mock.Anything, quietCommand("vagrant", "--version")).Return(tt.vagrantOut, tt.vagrantErr).Maybe()
			runner.On("Run", mock.Anything, quietCommand("vagrant", "winrm", "--plugin-version")).Return(tt.pluginOut, tt.pluginErr).Maybe()

			d := newTestDriver(t, newInstance(t, nil), runner, nil, nil)
			err := d.VerifyDependencies(context.Background())

			if tt.wantType == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantType))
			var vkErr *vkerrors.VagrantKitError
			require.True(t, errors.As(err, &vkErr))
			assert.Equal(t, tt.wantMsg, vkErr.Context)
			assert.True(t, vkErr.IsUserError())
		})
	}
}

func TestVerifyDependencies_InlineSkipsPlugin(t *testing.T) {
	runner := new(mockRunner)
	runner.On("Run", mock.Anything, quietCommand("vagrant", "--version")).Return("Vagrant 2.4.1", nil).Once()

	d := newTestDriver(t, newInstance(t, kitchen.Bag{"remote_mode": "inline"}), runner, nil, nil)
	require.NoError(t, d.VerifyDependencies(context.Background()))
	runner.AssertExpectations(t)
}
