package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/taskfan/taskfan/internal/config"
	"github.com/taskfan/taskfan/internal/events"
	"github.com/taskfan/taskfan/internal/executor"
	"github.com/taskfan/taskfan/internal/history"
	"github.com/taskfan/taskfan/internal/recovery"
	"github.com/taskfan/taskfan/internal/scheduler"
	"github.com/taskfan/taskfan/internal/telemetry"
	"github.com/taskfan/taskfan/internal/tui"
)

func newRunCmd() *cobra.Command {
	var (
		maxParallel int
		watch       bool
		noRecovery  bool
	)

	cmd := &cobra.Command{
		Use:   "run <plan.json>",
		Short: "Decompose a plan into a dependency graph and execute it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(args[0], maxParallel, watch, noRecovery)
		},
	}

	cmd.Flags().IntVar(&maxParallel, "max-parallel", 0, "max subtasks executing at once (0 = config value)")
	cmd.Flags().BoolVar(&watch, "watch", false, "show live progress in a TUI")
	cmd.Flags().BoolVar(&noRecovery, "no-recovery", false, "disable the retry hook for failed subtasks")

	return cmd
}

func runPlan(planPath string, maxParallel int, watch, noRecovery bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if maxParallel <= 0 {
		maxParallel = cfg.Scheduler.MaxParallelTasks
	}

	// In watch mode the terminal belongs to the TUI; logs would corrupt it.
	logSink := os.Stderr
	if watch {
		devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err == nil {
			defer devNull.Close()
			logSink = devNull
		}
	}
	logger := telemetry.Setup(logSink)

	plan, err := loadPlan(planPath)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	defer bus.Close()

	var archive scheduler.ReportArchive
	if cfg.History.Enabled {
		store, err := history.Open(ctx, historyPath(cfg))
		if err != nil {
			return fmt.Errorf("failed to open history archive: %w", err)
		}
		defer store.Close()
		archive = store
	}

	var hook scheduler.ErrorRecoveryHook
	if cfg.Recovery.Enabled && !noRecovery {
		hook = recovery.NewHook(recovery.Config{
			InitialInterval:     time.Duration(cfg.Recovery.InitialIntervalMS) * time.Millisecond,
			MaxInterval:         time.Duration(cfg.Recovery.MaxIntervalMS) * time.Millisecond,
			Multiplier:          cfg.Recovery.Multiplier,
			RandomizationFactor: cfg.Recovery.RandomizationFactor,
			TripAfter:           cfg.Recovery.TripAfter,
		}, logger)
	}

	execs := executor.DefaultRegistry(executor.Options{
		CommandWorkDir: cfg.Executors.CommandWorkDir,
		HTTPTimeout:    time.Duration(cfg.Executors.HTTPTimeoutSeconds) * time.Second,
		Contexts:       staticContext(plan.Context),
	})

	system, err := scheduler.New(scheduler.Options{
		MaxParallel: maxParallel,
		Executor:    execs,
		Recovery:    hook,
		Bus:         bus,
		Archive:     archive,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	spec := scheduler.TaskSpec{
		Name:        plan.Name,
		Description: plan.Description,
		Steps:       plan.Steps,
	}
	var defs []scheduler.SubtaskDef
	if len(plan.Subtasks) > 0 {
		defs = plan.Subtasks
	}

	taskID, err := system.DecomposeTask(ctx, spec, defs)
	if err != nil {
		return err
	}

	if _, err := system.ExecuteTask(ctx, taskID); err != nil {
		return err
	}

	if watch {
		err = watchTask(ctx, system, bus, taskID)
	} else {
		err = waitTask(ctx, system, taskID)
	}
	if err != nil {
		return err
	}

	report, err := system.GetTaskResults(taskID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if report.Status != scheduler.TaskCompleted {
		return fmt.Errorf("task %s %s", taskID, report.Status)
	}
	return nil
}

// waitTask blocks until the task finishes. A shutdown signal triggers
// cooperative cancellation and a bounded drain.
func waitTask(ctx context.Context, system *scheduler.System, taskID string) error {
	err := system.WaitTask(ctx, taskID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// Signal received: cancel the task, then let in-flight subtasks finish.
	if _, err := system.CancelTask(taskID); err != nil {
		return err
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return system.WaitTask(drainCtx, taskID)
}

// watchTask runs the TUI until the user quits. The task finishing closes the
// event stream but leaves the final screen up for inspection.
func watchTask(ctx context.Context, system *scheduler.System, bus *events.Bus, taskID string) error {
	p := tea.NewProgram(tui.New(bus), tea.WithAltScreen())

	errCh := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errCh <- err
	}()

	go func() {
		system.WaitTask(context.Background(), taskID)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		stopErr := waitTask(ctx, system, taskID)
		p.Quit()
		<-errCh
		if stopErr != nil {
			return stopErr
		}
	}

	// The TUI is gone; make sure the loop has fully drained before reporting.
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return system.WaitTask(drainCtx, taskID)
}

func historyPath(cfg *config.Config) string {
	if cfg.History.Path != "" {
		return cfg.History.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".taskfan", "history.db")
	}
	return filepath.Join(home, ".taskfan", "history.db")
}
