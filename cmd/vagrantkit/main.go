package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vagrantkit/internal/app"
	vkerrors "vagrantkit/internal/errors"
	"vagrantkit/internal/parser"
	"vagrantkit/internal/runtime"
	"vagrantkit/internal/ui"
	"vagrantkit/pkg/kitchen"
)

// version is set at build time via ldflags
var version = "dev"

type globalOptions struct {
	file        string
	logLevel    string
	dryRun      bool
	concurrency int
	destroy     string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "vagrantkit",
		Short:   "vagrantkit - test Windows instances with Vagrant over WinRM",
		Version: version,
		Long: `vagrantkit creates, converges, verifies and destroys test instances described
in a .kitchen.yml file. Each instance is a Vagrant machine driven through the
vagrant executable and provisioned over WinRM with the vagrant-winrm plugin.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(stderr, opts.logLevel)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.file, "file", "f", "", "Path to the kitchen file (default $KITCHEN_YAML or .kitchen.yml)")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "info", "Log level: debug, info, warn or error")

	actions := []struct {
		action app.Action
		short  string
	}{
		{app.ActionCreate, "Create one or more instances"},
		{app.ActionConverge, "Converge one or more instances, creating them first if needed"},
		{app.ActionSetup, "Set up the test tools on one or more instances"},
		{app.ActionVerify, "Run the tests on one or more instances"},
		{app.ActionDestroy, "Destroy one or more instances"},
		{app.ActionTest, "Destroy, create, converge, set up, verify and destroy one or more instances"},
	}
	for _, a := range actions {
		rootCmd.AddCommand(newActionCmd(opts, a.action, a.short, stdout, stderr))
	}

	rootCmd.AddCommand(newListCmd(opts, stdout))
	rootCmd.AddCommand(newDoctorCmd(opts, stdout, stderr))

	return rootCmd
}

func newActionCmd(opts *globalOptions, action app.Action, short string, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(action) + " [INSTANCE|REGEXP|all]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instances, err := loadInstances(opts.file, patternArg(args))
			if err != nil {
				return err
			}

			strategy, err := app.ParseDestroyStrategy(opts.destroy)
			if err != nil {
				return vkerrors.NewConfigError("Invalid --destroy value", err.Error(), "Use passing, always or never", err)
			}

			console := ui.NewConsoleWithWriters(stdout, stderr)
			factory := app.NewProviderFactory(runtime.NewExecRuntime(), opts.dryRun, stdout)
			orchestrator := app.NewOrchestrator(factory, console, app.Options{
				DryRun:      opts.dryRun,
				Concurrency: opts.concurrency,
				Destroy:     strategy,
			})

			if opts.dryRun {
				console.PrintWarning("DRY RUN MODE - commands are printed, not executed")
			}
			return orchestrator.Run(cmd.Context(), action, instances)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the vagrant commands instead of running them")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 1, "Number of instances to run in parallel")
	if action == app.ActionTest {
		cmd.Flags().StringVarP(&opts.destroy, "destroy", "d", string(app.DestroyPassing), "Destroy strategy: passing, always or never")
	}
	return cmd
}

func newListCmd(opts *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list [INSTANCE|REGEXP|all]",
		Short: "List instances and their last action",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instances, err := loadInstances(opts.file, patternArg(args))
			if err != nil {
				return err
			}

			statuses, err := app.ListStatus(instances)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Instance\tDriver\tProvisioner\tVerifier\tLast Action")
			for _, s := range statuses {
				last := string(s.LastAction)
				if last == "" {
					last = "<Not Created>"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Instance, s.Driver, s.Provisioner, s.Verifier, last)
			}
			return w.Flush()
		},
	}
}

func newDoctorCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [INSTANCE|REGEXP|all]",
		Short: "Check that vagrant and the vagrant-winrm plugin are installed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instances, err := loadInstances(opts.file, patternArg(args))
			if err != nil {
				return err
			}

			console := ui.NewConsoleWithWriters(stdout, stderr)
			factory := app.NewProviderFactory(runtime.NewExecRuntime(), false, stdout)
			return app.NewOrchestrator(factory, console, app.Options{}).VerifyDependencies(cmd.Context(), instances)
		},
	}
}

func patternArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// loadInstances parses the kitchen file and selects instances by pattern.
func loadInstances(file, pattern string) ([]*kitchen.Instance, error) {
	kf, err := parser.Parse(parser.KitchenFilePath(file))
	if err != nil {
		return nil, err
	}

	selected, err := kitchen.Select(kf.Instances(), pattern)
	if err != nil {
		return nil, vkerrors.NewConfigError(
			fmt.Sprintf("Invalid instance pattern %q", pattern),
			err.Error(),
			"Pass an instance name, a regular expression or all",
			err,
		)
	}
	if len(selected) == 0 {
		return nil, vkerrors.NewConfigError(
			fmt.Sprintf("No instances for regex `%s'", pattern),
			"",
			"Run `vagrantkit list' to see the available instances",
			nil,
		)
	}
	return selected, nil
}

func setupLogging(w io.Writer, level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return vkerrors.NewConfigError(fmt.Sprintf("Invalid log level %q", level), err.Error(), "Use debug, info, warn or error", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		vkerrors.HandleError(err)
		stop()
		os.Exit(1)
	}
}
