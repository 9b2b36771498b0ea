// Package vagrantfile renders the per-instance Vagrantfile from the driver
// configuration and writes it into the instance's vagrant root.
package vagrantfile

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	vkerrors "vagrantkit/internal/errors"
)

// FileName is the name of the generated file inside the vagrant root.
const FileName = "Vagrantfile"

//go:embed templates/Vagrantfile.tmpl
var defaultTemplate string

// Network is one c.vm.network entry.
type Network struct {
	Type    string
	Options map[string]interface{}
}

// SyncedFolder is one c.vm.synced_folder entry. Options is a Ruby expression.
type SyncedFolder struct {
	Source      string
	Destination string
	Options     string
}

// Data holds every value the template can reference.
type Data struct {
	InstanceName   string
	Box            string
	BoxURL         string
	Hostname       string
	Guest          string
	Communicator   string
	Provider       string
	Network        []Network
	SyncedFolders  []SyncedFolder
	Customize      map[string]interface{}
	CustomSettings map[string]interface{}
}

// ProviderFamily groups providers that share a customize syntax.
func (d Data) ProviderFamily() string {
	switch {
	case d.Provider == "virtualbox":
		return "virtualbox"
	case strings.HasPrefix(d.Provider, "vmware"):
		return "vmware"
	default:
		return d.Provider
	}
}

var funcs = template.FuncMap{
	"ruby":     rubyLiteral,
	"rubyArgs": rubyArgs,
	"str":      toString,
}

// Render executes the template at templatePath, or the built-in template when
// templatePath is empty, and strips whitespace-only lines from the result.
func Render(templatePath string, data Data) ([]byte, error) {
	text := defaultTemplate
	name := "default"
	if templatePath != "" {
		raw, err := os.ReadFile(templatePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, vkerrors.NewTemplateError(
					fmt.Sprintf("Could not find Vagrantfile template %s", templatePath),
					"",
					"Fix the vagrantfile_erb setting or remove it to use the built-in template",
					err,
				)
			}
			return nil, fmt.Errorf("failed to read Vagrantfile template: %w", err)
		}
		text = string(raw)
		name = filepath.Base(templatePath)
	}

	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, vkerrors.NewActionError(
			fmt.Sprintf("Invalid Vagrantfile template %s", name),
			err.Error(), "", err,
		)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, vkerrors.NewActionError(
			fmt.Sprintf("Failed to render Vagrantfile template %s", name),
			err.Error(), "", err,
		)
	}

	return stripBlankLines(buf.Bytes()), nil
}

// Write renders the Vagrantfile into root, creating root if needed, and
// returns the path written.
func Write(root, templatePath string, data Data) (string, error) {
	content, err := Render(templatePath, data)
	if err != nil {
		return "", err
	}

	path := filepath.Join(root, FileName)
	slog.Debug("Creating Vagrantfile", "instance", data.InstanceName, "path", path)

	if err := os.MkdirAll(root, 0750); err != nil {
		return "", vkerrors.NewFileSystemError(
			fmt.Sprintf("Failed to create vagrant root %s", root), err.Error(), "", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", vkerrors.NewFileSystemError(
			fmt.Sprintf("Failed to write %s", path), err.Error(), "", err)
	}

	debugVagrantfile(content)
	return path, nil
}

func debugVagrantfile(content []byte) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug("------------")
	for _, line := range strings.Split(strings.TrimRight(string(content), "\n"), "\n") {
		slog.Debug(line)
	}
	slog.Debug("------------")
}

func stripBlankLines(content []byte) []byte {
	lines := strings.SplitAfter(string(content), "\n")
	var b strings.Builder
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString(line)
	}
	return []byte(b.String())
}
