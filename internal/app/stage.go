package app

import (
	"context"
	"fmt"

	"vagrantkit/internal/driver"
)

// driverStage implements the Stage interface for one driver action.
type driverStage struct {
	action Action
	run    func(ctx context.Context, state *driver.State) error
}

// newDriverStage maps an action onto the matching driver operation.
func newDriverStage(action Action, d driver.Driver) (Stage, error) {
	var run func(context.Context, *driver.State) error
	switch action {
	case ActionCreate:
		run = d.Create
	case ActionConverge:
		run = d.Converge
	case ActionSetup:
		run = d.Setup
	case ActionVerify:
		run = d.Verify
	case ActionDestroy:
		run = d.Destroy
	default:
		return nil, fmt.Errorf("unknown action: %s", action)
	}
	return &driverStage{action: action, run: run}, nil
}

// Name returns the action the stage performs
func (s *driverStage) Name() Action {
	return s.action
}

// Execute runs the driver operation against the driver's part of the state.
func (s *driverStage) Execute(ctx context.Context, state *InstanceState) error {
	return s.run(ctx, &state.State)
}

// serial reports whether the action must not overlap the same action on
// another instance.
func serial(a Action) bool {
	return a == ActionCreate || a == ActionDestroy
}

var progressive = map[Action]string{
	ActionDestroy:  "Destroying",
	ActionCreate:   "Creating",
	ActionConverge: "Converging",
	ActionSetup:    "Setting up",
	ActionVerify:   "Verifying",
}

var finished = map[Action]string{
	ActionDestroy:  "destroying",
	ActionCreate:   "creating",
	ActionConverge: "converging",
	ActionSetup:    "setting up",
	ActionVerify:   "verifying",
}
