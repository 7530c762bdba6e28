package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/zimg/internal/app/history"
	"github.com/slok/zimg/internal/gallery"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	page     int
	pageSize int
	format   string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List the generated images, newest first.")
	c.Cmd.Flag("page", "History page (1-based).").Short('p').Default("1").IntVar(&c.page)
	c.Cmd.Flag("page-size", "Images per page.").Default(fmt.Sprint(gallery.DefaultPageSize)).IntVar(&c.pageSize)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
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

	svc, err := history.NewService(history.ServiceConfig{
		Gallery: g,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	page, err := svc.Run(ctx, history.Request{Page: c.page})
	if err != nil {
		return fmt.Errorf("could not list history: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintHistory(*page); err != nil {
		return fmt.Errorf("could not print history: %w", err)
	}

	return nil
}
