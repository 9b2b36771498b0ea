package vagrantfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vkerrors "vagrantkit/internal/errors"
)

func sampleData() Data {
	return Data{
		InstanceName: "default-win",
		Box:          "mwrock/Windows2012R2",
		Hostname:     "default-win",
		Guest:        "windows",
		Communicator: "winrm",
		Provider:     "virtualbox",
		Network: []Network{
			{Type: "forwarded_port", Options: map[string]interface{}{"guest": 80, "host": 8080}},
		},
		SyncedFolders: []SyncedFolder{
			{Source: "/k/data", Destination: "C:/data", Options: "nil"},
		},
		Customize: map[string]interface{}{
			"vrde":         "on",
			"vrdeport":     "5000-5100",
			"vrdeauthtype": "null",
		},
		CustomSettings: map[string]interface{}{"vm.boot_timeout": 600},
	}
}

func TestRender_DefaultTemplate(t *testing.T) {
	out, err := Render("", sampleData())
	require.NoError(t, err)

	expected := `# Generated by vagrantkit for default-win. Do not edit.
Vagrant.configure("2") do |c|
  c.vm.box = "mwrock/Windows2012R2"
  c.vm.hostname = "default-win"
  c.vm.guest = :windows
  c.vm.communicator = "winrm"
  c.vm.network(:forwarded_port, guest: 80, host: 8080)
  c.vm.synced_folder "/k/data", "C:/data", nil
  c.vm.boot_timeout = 600
  c.vm.provider :virtualbox do |p|
    p.customize ["modifyvm", :id, "--vrde", "on"]
    p.customize ["modifyvm", :id, "--vrdeauthtype", "null"]
    p.customize ["modifyvm", :id, "--vrdeport", "5000-5100"]
  end
end
`
	assert.Equal(t, expected, string(out))
}

func TestRender_ProviderFamilies(t *testing.T) {
	data := sampleData()
	data.Customize = map[string]interface{}{"memsize": 2048}

	data.Provider = "vmware_desktop"
	out, err := Render("", data)
	require.NoError(t, err)
	assert.Contains(t, string(out), `c.vm.provider :vmware_desktop do |p|`)
	assert.Contains(t, string(out), `p.vmx["memsize"] = "2048"`)

	data.Provider = "hyperv"
	out, err = Render("", data)
	require.NoError(t, err)
	assert.Contains(t, string(out), `p.memsize = 2048`)
}

func TestRender_BoxURL(t *testing.T) {
	data := sampleData()
	data.BoxURL = "https://example.com/win.box"

	out, err := Render("", data)
	require.NoError(t, err)
	assert.Contains(t, string(out), `c.vm.box_url = "https://example.com/win.box"`)
}

func TestRender_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Vagrantfile.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("box={{ .Box }}\n\n   \nprovider={{ .Provider }}\n"), 0644))

	out, err := Render(path, sampleData())
	require.NoError(t, err)
	assert.Equal(t, "box=mwrock/Windows2012R2\nprovider=virtualbox\n", string(out))
}

func TestRender_MissingTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.tmpl")

	_, err := Render(path, sampleData())
	require.Error(t, err)
	assert.True(t, errors.Is(err, vkerrors.ErrTemplateNotFound))

	var vkErr *vkerrors.VagrantKitError
	require.True(t, errors.As(err, &vkErr))
	assert.Equal(t, "Could not find Vagrantfile template "+path, vkErr.Context)
}

func TestRender_InvalidTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{ .Box "), 0644))

	_, err := Render(path, sampleData())
	require.Error(t, err)
	assert.True(t, errors.Is(err, vkerrors.ErrActionFailed))
}

func TestWrite(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".kitchen", "kitchen-vagrant", "default-win")

	path, err := Write(root, "", sampleData())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Vagrantfile"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `c.vm.box = "mwrock/Windows2012R2"`)
}

// captureLogs routes the default logger to a JSON buffer at level and
// returns a function that yields the logged messages in order.
func captureLogs(t *testing.T, level slog.Level) func() []string {
	t.Helper()
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(previous) })

	return func() []string {
		var msgs []string
		dec := json.NewDecoder(&buf)
		for dec.More() {
			var record struct {
				Msg string `json:"msg"`
			}
			require.NoError(t, dec.Decode(&record))
			msgs = append(msgs, record.Msg)
		}
		return msgs
	}
}

func TestWrite_DebugDump(t *testing.T) {
	messages := captureLogs(t, slog.LevelDebug)
	root := filepath.Join(t.TempDir(), "default-win")

	path, err := Write(root, "", sampleData())
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	want := []string{"Creating Vagrantfile", "------------"}
	want = append(want, strings.Split(strings.TrimRight(string(content), "\n"), "\n")...)
	want = append(want, "------------")
	assert.Equal(t, want, messages())
}

func TestWrite_NoDumpAboveDebug(t *testing.T) {
	messages := captureLogs(t, slog.LevelInfo)

	_, err := Write(filepath.Join(t.TempDir(), "default-win"), "", sampleData())
	require.NoError(t, err)
	assert.Empty(t, messages())
}

func TestRubyLiteral(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, "nil"},
		{"plain", `"plain"`},
		{`quote " and #{interp}`, `"quote \" and \#{interp}"`},
		{true, "true"},
		{42, "42"},
		{1.5, "1.5"},
		{[]interface{}{"a", 1}, `["a", 1]`},
		{map[string]interface{}{"b": 2, "a": "x"}, `{ a: "x", b: 2 }`},
		{map[string]interface{}{}, "{}"},
		{map[string]interface{}{"has-dash": 1}, `{ "has-dash": 1 }`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rubyLiteral(tt.in), "input %#v", tt.in)
	}
}

func TestParseNetwork(t *testing.T) {
	networks, err := ParseNetwork([]interface{}{
		[]interface{}{"forwarded_port", map[string]interface{}{"guest": 3389, "host": 33389}},
		[]interface{}{":private_network"},
	})
	require.NoError(t, err)
	require.Len(t, networks, 2)
	assert.Equal(t, "forwarded_port", networks[0].Type)
	assert.Equal(t, 33389, networks[0].Options["host"])
	assert.Equal(t, "private_network", networks[1].Type)
	assert.Nil(t, networks[1].Options)

	_, err = ParseNetwork([]interface{}{"not-a-list"})
	assert.Error(t, err)

	_, err = ParseNetwork([]interface{}{[]interface{}{"forwarded_port", "bad"}})
	assert.Error(t, err)
}

func TestFinalizeSyncedFolders(t *testing.T) {
	folders, err := FinalizeSyncedFolders([]interface{}{
		[]interface{}{"data/%{instance_name}", "C:/data/%{instance_name}"},
		[]interface{}{"/abs/src", "C:/abs", "create: true"},
		[]interface{}{"src", "C:/src", map[string]interface{}{"type": "smb"}},
	}, "default-win", "/kitchen")
	require.NoError(t, err)
	require.Len(t, folders, 3)

	assert.Equal(t, SyncedFolder{
		Source:      filepath.Join("/kitchen", "data", "default-win"),
		Destination: "C:/data/default-win",
		Options:     "nil",
	}, folders[0])
	assert.Equal(t, "/abs/src", folders[1].Source)
	assert.Equal(t, "create: true", folders[1].Options)
	assert.Equal(t, `type: "smb"`, folders[2].Options)

	_, err = FinalizeSyncedFolders([]interface{}{[]interface{}{"only-source"}}, "x", "/k")
	assert.Error(t, err)
}
