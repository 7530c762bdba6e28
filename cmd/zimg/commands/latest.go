package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/zimg/internal/app/latest"
)

type LatestCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewLatestCommand returns the latest command.
func NewLatestCommand(rootCmd *RootCommand, app *kingpin.Application) *LatestCommand {
	c := &LatestCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("latest", "Show the most recent generated image.")
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c LatestCommand) Name() string { return c.Cmd.FullCommand() }

func (c LatestCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.newClient()
	if err != nil {
		return err
	}

	svc, err := latest.NewService(latest.ServiceConfig{
		Client: cli,
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	img, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if img == nil {
		return p.PrintMessage("No images generated yet")
	}

	if err := p.PrintImage(*img); err != nil {
		return fmt.Errorf("could not print image: %w", err)
	}

	return nil
}
