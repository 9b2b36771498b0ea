package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"vagrantkit/internal/driver"
)

// InstanceState is the persisted record of an instance's lifecycle.
type InstanceState struct {
	driver.State  `yaml:",inline"`
	SchemaVersion string    `yaml:"schema_version"`
	RunID         string    `yaml:"run_id"`
	LastAction    Action    `yaml:"last_action,omitempty"`
	CreatedAt     time.Time `yaml:"created_at"`
	LastUpdatedAt time.Time `yaml:"last_updated_at"`
}

const StateSchemaVersion = "1.0"

// StateFilePath returns where the state of the named instance is stored.
func StateFilePath(kitchenRoot, instanceName string) string {
	return filepath.Join(kitchenRoot, ".kitchen", instanceName+".yml")
}

// loadState reads the state file at path.
// Returns nil if the file doesn't exist.
func loadState(path string) (*InstanceState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state InstanceState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}

	return &state, nil
}

// saveState persists the state to path.
func saveState(path string, state *InstanceState) error {
	state.LastUpdatedAt = time.Now()

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

func newState(runID string) *InstanceState {
	now := time.Now()
	return &InstanceState{
		SchemaVersion: StateSchemaVersion,
		RunID:         runID,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// removeStateFile removes the state file of a destroyed instance.
func removeStateFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
