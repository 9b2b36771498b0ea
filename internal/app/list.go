package app

import (
	"vagrantkit/internal/driver"
	vkerrors "vagrantkit/internal/errors"
	"vagrantkit/pkg/kitchen"
)

// Status summarizes an instance for the list command.
type Status struct {
	Instance    string
	Driver      string
	Provisioner string
	Verifier    string
	LastAction  Action
}

// ListStatus reads the recorded state of every instance.
func ListStatus(instances []*kitchen.Instance) ([]Status, error) {
	statuses := make([]Status, 0, len(instances))
	for _, inst := range instances {
		path := StateFilePath(inst.Root, inst.Name)
		state, err := loadState(path)
		if err != nil {
			return nil, vkerrors.NewStateError("Failed to load state for "+inst.String(), err.Error(), "", err)
		}

		s := Status{
			Instance:    inst.Name,
			Driver:      nameOrDefault(inst.Driver, driver.Name),
			Provisioner: nameOrDefault(inst.Provisioner, "shell"),
			Verifier:    nameOrDefault(inst.Verifier, "shell"),
		}
		if state != nil {
			s.LastAction = state.LastAction
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}
