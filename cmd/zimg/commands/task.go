package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/zimg/internal/app/taskstatus"
	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/tracker"
)

type TaskCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID   string
	wait     bool
	interval time.Duration
	format   string
}

// NewTaskCommand returns the task command.
func NewTaskCommand(rootCmd *RootCommand, app *kingpin.Application) *TaskCommand {
	c := &TaskCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("task", "Show the status of a generation task.")
	c.Cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)
	c.Cmd.Flag("wait", "Follow the task until it completes or fails.").BoolVar(&c.wait)
	c.Cmd.Flag("interval", "Task status polling interval.").Default(tracker.DefaultInterval.String()).DurationVar(&c.interval)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c TaskCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cli, err := c.rootCmd.newClient()
	if err != nil {
		return err
	}

	progress := newProgressLine(c.rootCmd.Stderr)
	tr, err := tracker.NewTracker(tracker.TrackerConfig{
		Client:   cli,
		Interval: c.interval,
		OnUpdate: progress.Update,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create tracker: %w", err)
	}
	defer tr.Close()

	svc, err := taskstatus.NewService(taskstatus.ServiceConfig{
		Client:  cli,
		Tracker: tr,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, taskstatus.Request{TaskID: c.taskID, Wait: c.wait})
	progress.Done()
	if err != nil {
		return fmt.Errorf("could not get task: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintTask(*task); err != nil {
		return fmt.Errorf("could not print task: %w", err)
	}

	if c.wait && task.Status == model.TaskStatusFailed {
		return fmt.Errorf("task %s failed: %s", task.ID, task.Error)
	}

	return nil
}
