package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/report"
	"github.com/artofscripting/networkvector/internal/scheduler"
)

func newScheduleCmd(a *app) *cobra.Command {
	flags := &scanFlags{}
	var (
		name string
		now  bool
	)

	cmd := &cobra.Command{
		Use:   "schedule <cron-expr> <targets>",
		Short: "Repeat a scan on a cron schedule",
		Long: `Run the same scan repeatedly until interrupted. The schedule is a standard
five-field cron expression (minute hour day month weekday) or a descriptor
such as @hourly or "@every 30m". Each run writes its own timestamped report.
A run that is still in progress when the next one is due is skipped.`,
		Example: `  nvector schedule "0 2 * * *" 10.0.0.0/16 --no-graph --output-dir /var/lib/nvector
  nvector schedule "@every 30m" 192.168.1.0/24 --now --live-addr 127.0.0.1:8787`,
		Args: cobra.ExactArgs(2),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initialize(cmd, flags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSchedule(cmd, args[0], args[1], name, now)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&name, "name", "", "job name used in logs (default: the targets)")
	cmd.Flags().BoolVar(&now, "now", false, "run once immediately, then follow the schedule")
	return cmd
}

func (a *app) runSchedule(cmd *cobra.Command, expr, targets, name string, now bool) error {
	if _, err := scheduler.ParseSchedule(expr); err != nil {
		return err
	}
	scanCfg, err := a.cfg.ScanConfig(targets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	s := newScanner(a.cfg, a.logger, out, a.verbose)
	if err := s.startLive(ctx); err != nil {
		return err
	}
	defer s.stopLive()

	sched := scheduler.New(func(jobCtx context.Context, job scheduler.Job) error {
		runCtx, cancel := context.WithCancel(jobCtx)
		defer cancel()
		defer context.AfterFunc(ctx, cancel)()

		session, path, err := s.scan(runCtx, job.Config)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "[%s] %s: %d hosts with open ports, %d open ports, report %s\n",
			time.Now().Format(time.DateTime), job.Name, session.Stats.HostsAlive, session.Stats.OpenPorts, path)
		return nil
	}, scheduler.WithLogger(a.logger))

	id, err := sched.AddJob(name, expr, scanCfg)
	if err != nil {
		return err
	}

	report.PrintBanner(out, scanCfg)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	job, _ := sched.Job(id)
	fmt.Fprintf(out, "Scheduled %q (%s), next run %s. Press Ctrl-C to stop.\n",
		job.Name, expr, job.NextRun.Format(time.DateTime))

	if now {
		if err := sched.RunNow(id); err != nil {
			if errors.IsFatal(err) {
				return err
			}
			a.logger.Warn("Immediate run failed", "job", job.Name, "error", err)
		}
	}

	<-ctx.Done()
	fmt.Fprintln(out, "\nStopping scheduler...")
	return nil
}
