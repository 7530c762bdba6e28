package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/zimg/internal/app/remove"
	"github.com/slok/zimg/internal/gallery"
)

type RemoveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	ids      []string
	all      bool
	page     int
	pageSize int
	format   string
}

// NewRemoveCommand returns the remove command.
func NewRemoveCommand(rootCmd *RootCommand, app *kingpin.Application) *RemoveCommand {
	c := &RemoveCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("rm", "Delete history images from the image service.")
	c.Cmd.Arg("image-ids", "Images to delete.").StringsVar(&c.ids)
	c.Cmd.Flag("all", "Delete every image of the history page.").BoolVar(&c.all)
	c.Cmd.Flag("page", "History page used by --all (1-based).").Short('p').Default("1").IntVar(&c.page)
	c.Cmd.Flag("page-size", "Images per page.").Default(fmt.Sprint(gallery.DefaultPageSize)).IntVar(&c.pageSize)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c RemoveCommand) Name() string { return c.Cmd.FullCommand() }

func (c RemoveCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cli, err := c.rootCmd.newClient()
	if err != nil {
		return err
	}

	g, err := gallery.NewManager(gallery.ManagerConfig{
		Client:   cli,
		PageSize: c.pageSize,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create gallery: %w", err)
	}

	svc, err := remove.NewService(remove.ServiceConfig{
		Gallery: g,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, remove.Request{
		IDs:  c.ids,
		All:  c.all,
		Page: c.page,
	})
	if err != nil {
		return fmt.Errorf("could not delete images: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if res.Total() == 0 {
		return p.PrintMessage("No images to delete")
	}

	if err := p.PrintBatchResult(*res); err != nil {
		return fmt.Errorf("could not print delete result: %w", err)
	}

	return res.Err()
}
