package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/zimg/cmd/zimg/commands"
	"github.com/slok/zimg/internal/log"
	loglogrus "github.com/slok/zimg/internal/log/logrus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("zimg", "Image generation service client.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	generateCmd := commands.NewGenerateCommand(rootCmd, app)
	taskCmd := commands.NewTaskCommand(rootCmd, app)
	systemCmd := commands.NewSystemCommand(rootCmd, app)
	historyCmd := commands.NewHistoryCommand(rootCmd, app)
	latestCmd := commands.NewLatestCommand(rootCmd, app)
	downloadCmd := commands.NewDownloadCommand(rootCmd, app)
	removeCmd := commands.NewRemoveCommand(rootCmd, app)
	cleanupCmd := commands.NewCleanupCommand(rootCmd, app)
	savedCmd := commands.NewSavedCommand(rootCmd, app)
	devServerCmd := commands.NewDevServerCommand(rootCmd, app)

	cmds := map[string]commands.Command{
		generateCmd.Name():  generateCmd,
		taskCmd.Name():      taskCmd,
		systemCmd.Name():    systemCmd,
		historyCmd.Name():   historyCmd,
		latestCmd.Name():    latestCmd,
		downloadCmd.Name():  downloadCmd,
		removeCmd.Name():    removeCmd,
		cleanupCmd.Name():   cleanupCmd,
		savedCmd.Name():     savedCmd,
		devServerCmd.Name(): devServerCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Auto-suppress logging for commands that only print structured output (table/JSON)
	// so log lines don't mix with the printer output. Users can still enable logging
	// with --debug.
	printerCommands := map[string]bool{
		"task":    true,
		"system":  true,
		"history": true,
		"latest":  true,
		"saved":   true,
	}
	if printerCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// Set logger.
	rootCmd.Logger = getLogger(ctx, *rootCmd)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(ctx context.Context, config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
