package app

import (
	"context"
	"fmt"
)

// Action is one step of an instance's lifecycle.
type Action string

const (
	ActionDestroy  Action = "destroy"
	ActionCreate   Action = "create"
	ActionConverge Action = "converge"
	ActionSetup    Action = "setup"
	ActionVerify   Action = "verify"

	// ActionTest runs the whole lifecycle and is never recorded as a last action.
	ActionTest Action = "test"
)

// transitions lists the lifecycle actions in order.
var transitions = []Action{ActionDestroy, ActionCreate, ActionConverge, ActionSetup, ActionVerify}

// Stage is a single lifecycle step executed against one instance.
type Stage interface {
	Name() Action
	Execute(ctx context.Context, state *InstanceState) error
}

// DestroyStrategy decides whether the test action destroys its instance.
type DestroyStrategy string

const (
	DestroyPassing DestroyStrategy = "passing"
	DestroyAlways  DestroyStrategy = "always"
	DestroyNever   DestroyStrategy = "never"
)

// ParseDestroyStrategy validates a --destroy flag value.
func ParseDestroyStrategy(s string) (DestroyStrategy, error) {
	switch DestroyStrategy(s) {
	case DestroyPassing, DestroyAlways, DestroyNever:
		return DestroyStrategy(s), nil
	case "":
		return DestroyPassing, nil
	default:
		return "", fmt.Errorf("destroy strategy must be one of passing, always or never, got %q", s)
	}
}

func actionIndex(a Action) int {
	for i, t := range transitions {
		if t == a {
			return i
		}
	}
	return 0
}

// actionsFor returns the actions needed to move an instance whose last
// successful action is last to desired. An instance already at or past
// desired runs desired again.
func actionsFor(last, desired Action) []Action {
	from := actionIndex(last)
	to := actionIndex(desired)
	if from >= to {
		return []Action{desired}
	}
	return append([]Action(nil), transitions[from+1:to+1]...)
}
