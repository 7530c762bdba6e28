package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/zimg/internal/app/systemstatus"
	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/monitor"
)

type SystemCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	watch    bool
	interval time.Duration
	format   string
}

// NewSystemCommand returns the system command.
func NewSystemCommand(rootCmd *RootCommand, app *kingpin.Application) *SystemCommand {
	c := &SystemCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("system", "Show the image service host status (CPU, memory, GPU, disk).")
	c.Cmd.Flag("watch", "Keep refreshing the status until interrupted.").Short('w').BoolVar(&c.watch)
	c.Cmd.Flag("interval", "Refresh interval when watching.").Default(monitor.DefaultInterval.String()).DurationVar(&c.interval)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c SystemCommand) Name() string { return c.Cmd.FullCommand() }

func (c SystemCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cli, err := c.rootCmd.newClient()
	if err != nil {
		return err
	}

	svc, err := systemstatus.NewService(systemstatus.ServiceConfig{
		Client:        cli,
		WatchInterval: c.interval,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)

	if !c.watch {
		status, err := svc.Run(ctx, systemstatus.Request{})
		if err != nil {
			return err
		}
		if err := p.PrintSystemStatus(*status); err != nil {
			return fmt.Errorf("could not print system status: %w", err)
		}
		return nil
	}

	_, err = svc.Run(ctx, systemstatus.Request{
		Watch: true,
		OnUpdate: func(status *model.SystemStatus, err error) {
			if err != nil {
				fmt.Fprintf(c.rootCmd.Stderr, "System status unavailable: %s\n", err)
				return
			}
			if c.format == formatTable {
				fmt.Fprintln(c.rootCmd.Stdout)
			}
			if err := p.PrintSystemStatus(*status); err != nil {
				logger.Errorf("Could not print system status: %s", err)
			}
		},
	})

	return err
}
