package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/zimg/internal/app/saved"
)

type SavedCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	prune  bool
	format string
}

// NewSavedCommand returns the saved command.
func NewSavedCommand(rootCmd *RootCommand, app *kingpin.Application) *SavedCommand {
	c := &SavedCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("saved", "List the images downloaded to the local filesystem.")
	c.Cmd.Flag("prune", "Forget the saved images whose file was removed.").BoolVar(&c.prune)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c SavedCommand) Name() string { return c.Cmd.FullCommand() }

func (c SavedCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, err := c.rootCmd.openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := saved.NewService(saved.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	resp, err := svc.Run(ctx, saved.Request{Prune: c.prune})
	if err != nil {
		return err
	}

	if len(resp.Pruned) > 0 {
		logger.Infof("Forgot %d saved images with missing files", len(resp.Pruned))
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if len(resp.Saved) == 0 && c.format == formatTable {
		return p.PrintMessage("No saved images")
	}

	if err := p.PrintSavedArtifacts(resp.Saved); err != nil {
		return fmt.Errorf("could not print saved images: %w", err)
	}

	return nil
}
