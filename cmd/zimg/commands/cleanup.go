package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/zimg/internal/app/cleanup"
)

type CleanupCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewCleanupCommand returns the cleanup command.
func NewCleanupCommand(rootCmd *RootCommand, app *kingpin.Application) *CleanupCommand {
	c := &CleanupCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("cleanup", "Delete the history images out of the service retention.")
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c CleanupCommand) Name() string { return c.Cmd.FullCommand() }

func (c CleanupCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.newClient()
	if err != nil {
		return err
	}

	svc, err := cleanup.NewService(cleanup.ServiceConfig{
		Client: cli,
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintCleanup(*res); err != nil {
		return fmt.Errorf("could not print cleanup result: %w", err)
	}

	return nil
}
