package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/zimg/internal/app/download"
	"github.com/slok/zimg/internal/conventions"
	imgdownload "github.com/slok/zimg/internal/download"
	"github.com/slok/zimg/internal/gallery"
)

type DownloadCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	ids       []string
	all       bool
	page      int
	pageSize  int
	outputDir string
	delay     time.Duration
	format    string
}

// NewDownloadCommand returns the download command.
func NewDownloadCommand(rootCmd *RootCommand, app *kingpin.Application) *DownloadCommand {
	c := &DownloadCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("download", "Download history images to the local filesystem.")
	c.Cmd.Arg("image-ids", "Images to download, they must be on the selected history page.").StringsVar(&c.ids)
	c.Cmd.Flag("all", "Download every image of the history page.").BoolVar(&c.all)
	c.Cmd.Flag("page", "History page the images are on (1-based).").Short('p').Default("1").IntVar(&c.page)
	c.Cmd.Flag("page-size", "Images per page.").Default(fmt.Sprint(gallery.DefaultPageSize)).IntVar(&c.pageSize)
	c.Cmd.Flag("output-dir", "Directory for the images, defaults to <data-dir>/downloads.").Short('o').StringVar(&c.outputDir)
	c.Cmd.Flag("delay", "Pause between consecutive downloads.").Default(gallery.DefaultDownloadDelay.String()).DurationVar(&c.delay)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c DownloadCommand) Name() string { return c.Cmd.FullCommand() }

func (c DownloadCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cli, err := c.rootCmd.newClient()
	if err != nil {
		return err
	}

	repo, err := c.rootCmd.openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	outputDir := c.outputDir
	if outputDir == "" {
		outputDir = conventions.DownloadsPath(c.rootCmd.DataDir)
	}

	saver, err := imgdownload.NewFileSaver(imgdownload.FileSaverConfig{
		Client:       cli,
		Repository:   repo,
		OutputDir:    outputDir,
		StatusWriter: c.rootCmd.Stderr,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create file saver: %w", err)
	}

	g, err := gallery.NewManager(gallery.ManagerConfig{
		Client:        cli,
		Saver:         saver,
		PageSize:      c.pageSize,
		DownloadDelay: c.delay,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create gallery: %w", err)
	}

	svc, err := download.NewService(download.ServiceConfig{
		Gallery: g,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, download.Request{
		Page: c.page,
		IDs:  c.ids,
		All:  c.all,
	})
	if err != nil {
		return fmt.Errorf("could not download images: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if res.Total() == 0 {
		return p.PrintMessage("No images to download")
	}

	if err := p.PrintBatchResult(*res); err != nil {
		return fmt.Errorf("could not print download result: %w", err)
	}

	if err := res.Err(); err != nil {
		return err
	}

	return res.NotOnPageErr(c.page)
}
