// Package app orchestrates lifecycle actions across kitchen instances and
// persists each instance's progress so later actions resume where earlier
// ones stopped.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vagrantkit/internal/driver"
	vkerrors "vagrantkit/internal/errors"
	"vagrantkit/internal/ui"
	"vagrantkit/pkg/kitchen"
)

// Options configures an Orchestrator.
type Options struct {
	DryRun      bool
	Concurrency int
	Destroy     DestroyStrategy
}

// Orchestrator runs lifecycle actions against instances.
type Orchestrator struct {
	factory Factory
	console *ui.Console
	opts    Options

	// serialMu keeps create and destroy from overlapping across instances.
	serialMu sync.Mutex
}

func NewOrchestrator(factory Factory, console *ui.Console, opts Options) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Destroy == "" {
		opts.Destroy = DestroyPassing
	}
	return &Orchestrator{factory: factory, console: console, opts: opts}
}

// Run performs action on every instance, up to Concurrency at a time.
// The first failure cancels instances that have not started yet.
func (o *Orchestrator) Run(ctx context.Context, action Action, instances []*kitchen.Instance) error {
	slog.Info("Starting action", "action", action, "instances", len(instances), "concurrency", o.opts.Concurrency, "dryRun", o.opts.DryRun)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for _, inst := range instances {
		inst := inst
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return o.runInstance(ctx, action, inst)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	o.console.PrintSuccess(fmt.Sprintf("-----> Kitchen is finished. (%s)", elapsed(start)))
	return nil
}

// VerifyDependencies checks the driver dependencies of every instance.
func (o *Orchestrator) VerifyDependencies(ctx context.Context, instances []*kitchen.Instance) error {
	for _, inst := range instances {
		d, err := o.factory.GetDriver(inst)
		if err != nil {
			return err
		}
		if err := d.VerifyDependencies(ctx); err != nil {
			return err
		}
		o.console.PrintSuccess(fmt.Sprintf("Dependencies for %s are satisfied.", inst))
	}
	return nil
}

func (o *Orchestrator) runInstance(ctx context.Context, action Action, inst *kitchen.Instance) error {
	d, err := o.factory.GetDriver(inst)
	if err != nil {
		return err
	}

	if !o.opts.DryRun {
		if err := d.VerifyDependencies(ctx); err != nil {
			return err
		}
	}

	path := StateFilePath(inst.Root, inst.Name)
	state, err := loadState(path)
	if err != nil {
		return vkerrors.NewStateError("Failed to load state for "+inst.String(), err.Error(),
			"Remove "+path+" to start the instance from scratch", err)
	}
	if state == nil {
		state = newState(uuid.New().String())
		slog.Debug("Starting new instance state", "instance", inst.Name, "runId", state.RunID)
	} else {
		slog.Debug("Resuming instance state", "instance", inst.Name, "runId", state.RunID, "lastAction", state.LastAction)
	}

	r := &instanceRun{o: o, inst: inst, state: state, path: path}
	if action == ActionTest {
		return r.test(ctx, d)
	}

	for _, a := range actionsFor(state.LastAction, action) {
		if err := r.do(ctx, d, a); err != nil {
			return err
		}
	}
	return nil
}

// instanceRun carries the state of one instance through its actions.
type instanceRun struct {
	o     *Orchestrator
	inst  *kitchen.Instance
	state *InstanceState
	path  string
}

func (r *instanceRun) test(ctx context.Context, d driver.Driver) error {
	r.o.console.PrintStage(fmt.Sprintf("Cleaning up any prior instances of %s", r.inst))
	if err := r.do(ctx, d, ActionDestroy); err != nil {
		return err
	}

	r.o.console.PrintStage(fmt.Sprintf("Testing %s", r.inst))
	for _, a := range transitions[1:] {
		if err := r.do(ctx, d, a); err != nil {
			if r.o.opts.Destroy == DestroyAlways {
				if derr := r.do(context.WithoutCancel(ctx), d, ActionDestroy); derr != nil {
					slog.Error("Failed to destroy instance after failed test", "instance", r.inst.Name, "error", derr)
				}
			}
			return err
		}
	}

	if r.o.opts.Destroy == DestroyNever {
		return nil
	}
	return r.do(ctx, d, ActionDestroy)
}

// do runs a single action and records it.
func (r *instanceRun) do(ctx context.Context, d driver.Driver, action Action) error {
	stage, err := newDriverStage(action, d)
	if err != nil {
		return err
	}
	return r.execute(ctx, stage)
}

func (r *instanceRun) execute(ctx context.Context, stage Stage) error {
	action := stage.Name()
	if serial(action) {
		r.o.serialMu.Lock()
		defer r.o.serialMu.Unlock()
	}

	r.o.console.PrintStage(fmt.Sprintf("%s %s...", progressive[action], r.inst))
	start := time.Now()

	if err := stage.Execute(ctx, r.state); err != nil {
		return vkerrors.NewActionFailure(r.inst.Name, string(action), err)
	}

	r.o.console.PrintSuccess(fmt.Sprintf("       Finished %s %s (%s).", finished[action], r.inst, elapsed(start)))
	slog.Info("Action completed", "instance", r.inst.Name, "action", action, "dryRun", r.o.opts.DryRun)

	if r.o.opts.DryRun {
		r.state.LastAction = action
		return nil
	}
	return r.record(action)
}

func (r *instanceRun) record(action Action) error {
	if action == ActionDestroy {
		r.state.LastAction = ""
		if err := removeStateFile(r.path); err != nil {
			return vkerrors.NewStateError("Failed to clear state for "+r.inst.String(), err.Error(), "", err)
		}
		return nil
	}

	r.state.LastAction = action
	if err := saveState(r.path, r.state); err != nil {
		return vkerrors.NewStateError("Failed to save state for "+r.inst.String(), err.Error(), "", err)
	}
	return nil
}

func elapsed(start time.Time) string {
	d := time.Since(start)
	return fmt.Sprintf("%dm%.2fs", int(d.Minutes()), d.Seconds()-float64(int(d.Minutes())*60))
}
