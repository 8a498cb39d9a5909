// Package main provides the entry point for the watcherd daemon.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/samber/do/v2"

	"github.com/listenupapp/watcherd/internal/config"
	"github.com/listenupapp/watcherd/internal/di"
	"github.com/listenupapp/watcherd/internal/job"
	"github.com/listenupapp/watcherd/internal/logger"
	"github.com/listenupapp/watcherd/internal/supervisor"
	"github.com/listenupapp/watcherd/internal/watcher"
)

// Globals are accepted by every command. Empty values fall back to the
// environment, the .env file and then the defaults.
type Globals struct {
	Env       string `help:"Environment: development, staging or production (ENV)"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn or error (LOG_LEVEL)"`
	LogFormat string `name:"log-format" help:"Log format: json, pretty or text (LOG_FORMAT)"`
	Jobs      string `placeholder:"PATH" help:"Jobs file (WATCHER_JOBS, default ~/.watcher/jobs.yml)"`
	EnvFile   string `name:"env-file" placeholder:"PATH" help:"Read settings from this .env file (default .env)"`
}

func (g Globals) flags() config.Flags {
	return config.Flags{
		Env:       g.Env,
		LogLevel:  g.LogLevel,
		LogFormat: g.LogFormat,
		Jobs:      g.Jobs,
		EnvFile:   g.EnvFile,
	}
}

type cli struct {
	Globals

	Run    runCommand    `cmd:"" default:"1" help:"Watch the configured jobs and run their commands (default)"`
	Check  checkCommand  `cmd:"" help:"Validate the jobs file and list the jobs it defines"`
	Events eventsCommand `cmd:"" help:"List the event names accepted in the jobs file"`
}

type runCommand struct {
	MetricsAddr   string `name:"metrics-addr" placeholder:"HOST:PORT" help:"Serve /metrics, /healthz and /status on this address (METRICS_ADDR)"`
	ShutdownGrace string `name:"shutdown-grace" placeholder:"DURATION" help:"How long shutdown waits for running commands (SHUTDOWN_GRACE, default 10s)"`
	Shell         string `placeholder:"PATH" help:"Shell for jobs with shell enabled (WATCHER_SHELL, default /bin/sh)"`
}

func (c *runCommand) Run(g Globals) error {
	flags := g.flags()
	flags.MetricsAddr = c.MetricsAddr
	flags.ShutdownGrace = c.ShutdownGrace
	flags.Shell = c.Shell

	injector := di.NewContainer(flags)

	if err := di.Bootstrap(injector); err != nil {
		_ = injector.Shutdown()
		return fmt.Errorf("failed to start: %w", err)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	manager := do.MustInvoke[*supervisor.Manager](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	serveErr := manager.Serve(ctx)
	stop()

	if serveErr != nil {
		log.Error("watching stopped", "error", serveErr)
	} else {
		log.Info("shutting down")
	}

	// The DI container shuts down in reverse dependency order: the status
	// server first, then the reaper's grace wait for running commands.
	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}

	return serveErr
}

type checkCommand struct{}

func (c *checkCommand) Run(g Globals) error {
	cfg, err := config.LoadConfig(g.flags())
	if err != nil {
		return err
	}

	jobs, jobErrs, err := job.LoadFile(cfg.Jobs.Path)
	if err != nil {
		return err
	}

	printJobs(os.Stdout, cfg.Jobs.Path, jobs, jobErrs)

	switch {
	case len(jobErrs) > 0:
		return fmt.Errorf("%d invalid job(s) in %s", len(jobErrs), cfg.Jobs.Path)
	case len(jobs) == 0:
		return fmt.Errorf("no jobs defined in %s", cfg.Jobs.Path)
	}
	return nil
}

func printJobs(w io.Writer, path string, jobs []*job.Job, jobErrs []error) {
	fmt.Fprintf(w, "%s: %d job(s), %d invalid\n\n", path, len(jobs), len(jobErrs))

	if len(jobs) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tROOT\tEVENTS\tRECURSIVE\tEXCLUDE\tCOMMAND")
		for _, j := range jobs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%v\t%s\n",
				j.Name, j.Root, j.Mask, j.Recursive, j.Exclude.Patterns(), j.Command)
		}
		_ = tw.Flush()
	}

	for _, err := range jobErrs {
		fmt.Fprintf(w, "error: %v\n", err)
	}
}

type eventsCommand struct{}

func (c *eventsCommand) Run() error {
	printEvents(os.Stdout)
	return nil
}

func printEvents(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tNATIVE")
	for _, name := range watcher.KnownEvents() {
		fmt.Fprintf(tw, "%s\t%s\n", name, watcher.ParseEvents([]string{name}))
	}
	_ = tw.Flush()
}

func main() {
	var params cli
	ctx := kong.Parse(&params,
		kong.Name("watcherd"),
		kong.Description("Watch directory trees and run a command for every matching filesystem event."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(params.Globals))
}
