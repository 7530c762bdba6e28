package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slok/zimg/internal/backend/fake"
	"github.com/slok/zimg/internal/conventions"
	metricsprom "github.com/slok/zimg/internal/metrics/prometheus"
	"github.com/slok/zimg/internal/sysinfo"
)

// DevServerCommand runs an in-memory image service for local development.
type DevServerCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listenAddr     string
	maxImages      int
	maxAge         time.Duration
	staticStatus   bool
	diskPath       string
	cpuSampleDelay time.Duration
	metricsPath    string
	noMetrics      bool
}

// NewDevServerCommand returns the dev server command.
func NewDevServerCommand(rootCmd *RootCommand, app *kingpin.Application) *DevServerCommand {
	c := &DevServerCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("dev-server", "Run an in-memory image service for development, tasks advance one step per status poll.")
	c.Cmd.Flag("listen", "Address to listen on.").Default(conventions.DefaultDevServerAddress).StringVar(&c.listenAddr)
	c.Cmd.Flag("max-images", "History images kept by the cleanup.").Default("500").IntVar(&c.maxImages)
	c.Cmd.Flag("max-age", "History images older than this are deleted by the cleanup.").Default("720h").DurationVar(&c.maxAge)
	c.Cmd.Flag("static-status", "Serve a static system status instead of the host one.").BoolVar(&c.staticStatus)
	c.Cmd.Flag("disk-path", "Path whose disk usage is reported, defaults to the working directory.").StringVar(&c.diskPath)
	c.Cmd.Flag("cpu-sample", "CPU usage sampling window of every status request.").Default("200ms").DurationVar(&c.cpuSampleDelay)
	c.Cmd.Flag("metrics-path", "Path where the Prometheus metrics are served.").Default("/metrics").StringVar(&c.metricsPath)
	c.Cmd.Flag("no-metrics", "Disable the Prometheus metrics.").BoolVar(&c.noMetrics)

	return c
}

func (c DevServerCommand) Name() string { return c.Cmd.FullCommand() }

func (c DevServerCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg := fake.BackendConfig{
		MaxHistoryImages: c.maxImages,
		MaxHistoryAge:    c.maxAge,
		Logger:           logger,
	}

	if !c.staticStatus {
		provider, err := sysinfo.NewProvider(sysinfo.ProviderConfig{
			DiskPath:          c.diskPath,
			CPUSampleInterval: c.cpuSampleDelay,
			Logger:            logger,
		})
		if err != nil {
			return fmt.Errorf("could not create system info provider: %w", err)
		}
		cfg.StatusProvider = provider
	}

	srvCfg := fake.ServerConfig{
		ListenAddr:  c.listenAddr,
		MetricsPath: c.metricsPath,
		Logger:      logger,
	}

	if !c.noMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder, err := metricsprom.NewRecorder(metricsprom.RecorderConfig{Registerer: reg})
		if err != nil {
			return fmt.Errorf("could not create metrics recorder: %w", err)
		}
		cfg.MetricsRecorder = recorder
		srvCfg.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	backend, err := fake.NewBackend(cfg)
	if err != nil {
		return fmt.Errorf("could not create fake backend: %w", err)
	}
	srvCfg.Backend = backend

	srv, err := fake.NewServer(srvCfg)
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	return srv.Run(ctx)
}
