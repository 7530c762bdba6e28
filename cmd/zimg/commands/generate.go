package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/zimg/internal/app/generate"
	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/monitor"
	storageio "github.com/slok/zimg/internal/storage/io"
	"github.com/slok/zimg/internal/tracker"
)

type GenerateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	prompt         string
	negativePrompt string
	aspectRatio    string
	quality        string
	seed           int64
	seedSet        bool
	file           string
	noWait         bool
	interval       time.Duration
	watchSystem    bool
	format         string

	cpu                bool
	batchSize          int
	gpuID              int
	guidanceScale      float64
	maxConcurrentTasks int
	advancedSet        [5]bool
}

// NewGenerateCommand returns the generate command.
func NewGenerateCommand(rootCmd *RootCommand, app *kingpin.Application) *GenerateCommand {
	c := &GenerateCommand{rootCmd: rootCmd}

	ratios := make([]string, 0, len(model.AspectRatios()))
	for _, r := range model.AspectRatios() {
		ratios = append(ratios, string(r))
	}
	qualities := make([]string, 0, len(model.Qualities()))
	for _, q := range model.Qualities() {
		qualities = append(qualities, string(q))
	}
	defAdv := model.DefaultAdvancedOptions()

	c.Cmd = app.Command("generate", "Generate an image and follow its progress.")
	c.Cmd.Arg("prompt", "Text description of the image.").StringVar(&c.prompt)
	c.Cmd.Flag("negative-prompt", "What the image should not have.").StringVar(&c.negativePrompt)
	c.Cmd.Flag("aspect-ratio", "Aspect ratio preset.").EnumVar(&c.aspectRatio, ratios...)
	c.Cmd.Flag("quality", "Quality preset (fast, balanced, high).").EnumVar(&c.quality, qualities...)
	c.Cmd.Flag("seed", "Seed for reproducible images, random if missing.").IsSetByUser(&c.seedSet).Int64Var(&c.seed)
	c.Cmd.Flag("file", "YAML file with the generation options, flags override it.").Short('f').StringVar(&c.file)
	c.Cmd.Flag("no-wait", "Return after the submission without following the task.").BoolVar(&c.noWait)
	c.Cmd.Flag("interval", "Task status polling interval.").Default(tracker.DefaultInterval.String()).DurationVar(&c.interval)
	c.Cmd.Flag("watch-system", "Log the image service host status while generating.").BoolVar(&c.watchSystem)
	formatFlag(c.Cmd, &c.format)

	c.Cmd.Flag("cpu", "Advanced: generate without GPU.").IsSetByUser(&c.advancedSet[0]).BoolVar(&c.cpu)
	c.Cmd.Flag("batch-size", "Advanced: batch size (1, 2, 4, 8).").Default(fmt.Sprint(defAdv.BatchSize)).IsSetByUser(&c.advancedSet[1]).IntVar(&c.batchSize)
	c.Cmd.Flag("gpu-id", "Advanced: GPU device ID.").Default(fmt.Sprint(defAdv.GPUID)).IsSetByUser(&c.advancedSet[2]).IntVar(&c.gpuID)
	c.Cmd.Flag("guidance-scale", "Advanced: guidance scale (0-20, 0.5 steps).").Default(fmt.Sprint(defAdv.GuidanceScale)).IsSetByUser(&c.advancedSet[3]).Float64Var(&c.guidanceScale)
	c.Cmd.Flag("max-concurrent-tasks", "Advanced: max concurrent tasks (1, 2, 4).").Default(fmt.Sprint(defAdv.MaxConcurrentTasks)).IsSetByUser(&c.advancedSet[4]).IntVar(&c.maxConcurrentTasks)

	return c
}

func (c GenerateCommand) Name() string { return c.Cmd.FullCommand() }

func (c GenerateCommand) Run(ctx context.Context) error {
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

	if c.watchSystem && !c.noWait {
		mon, err := monitor.NewMonitor(monitor.MonitorConfig{
			Client: cli,
			OnUpdate: func(s *model.SystemStatus, err error) {
				if err != nil {
					logger.Warningf("System status unavailable: %s", err)
					return
				}
				logger.Infof("%s", systemSummary(*s))
			},
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create monitor: %w", err)
		}
		if err := mon.Start(ctx); err != nil {
			return err
		}
		defer mon.Stop()
	}

	svc, err := generate.NewService(generate.ServiceConfig{
		Tracker:           tr,
		OptionsRepository: storageio.NewGenerationYAMLRepository(os.DirFS("/")),
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	file, err := absFSPath(c.file)
	if err != nil {
		return err
	}

	task, err := svc.Run(ctx, generate.Request{
		OptionsFile: file,
		Options:     c.options(),
		Wait:        !c.noWait,
	})
	progress.Done()
	if err != nil {
		return fmt.Errorf("could not generate image: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintTask(*task); err != nil {
		return fmt.Errorf("could not print task: %w", err)
	}

	if task.Status == model.TaskStatusFailed {
		return fmt.Errorf("task %s failed: %s", task.ID, task.Error)
	}

	return nil
}

func (c GenerateCommand) options() model.GenerationOptions {
	opts := model.GenerationOptions{
		Prompt:         c.prompt,
		NegativePrompt: c.negativePrompt,
		AspectRatio:    model.AspectRatio(c.aspectRatio),
		Quality:        model.Quality(c.quality),
	}

	if c.seedSet {
		seed := c.seed
		opts.Seed = &seed
	}

	for _, set := range c.advancedSet {
		if set {
			opts.Advanced = &model.AdvancedOptions{
				UseGPU:             !c.cpu,
				BatchSize:          c.batchSize,
				GPUID:              c.gpuID,
				GuidanceScale:      c.guidanceScale,
				MaxConcurrentTasks: c.maxConcurrentTasks,
			}
			break
		}
	}

	return opts
}
