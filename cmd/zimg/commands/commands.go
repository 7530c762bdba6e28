package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/zimg/internal/client"
	"github.com/slok/zimg/internal/conventions"
	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/printer"
	"github.com/slok/zimg/internal/storage/sqlite"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	APIURL     string
	Timeout    time.Duration
	DataDir    string
	DBPath     string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("api-url", "Image generation service base URL.").Default(conventions.DefaultAPIURL).StringVar(&c.APIURL)
	app.Flag("timeout", "Timeout of every image service call.").Default(client.DefaultTimeout.String()).DurationVar(&c.Timeout)

	defaultDataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("data-dir", "Local data directory (downloads and saved images ledger).").Default(defaultDataDir).StringVar(&c.DataDir)
	app.Flag("db-path", "Path to the SQLite saved images ledger, defaults to <data-dir>/zimg.db.").Envar("ZIMG_DB_PATH").StringVar(&c.DBPath)

	return c
}

// newClient returns the image service client for the global flags.
func (r *RootCommand) newClient() (*client.Client, error) {
	c, err := client.NewClient(client.ClientConfig{
		BaseURL: r.APIURL,
		Timeout: r.Timeout,
		Logger:  r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create image service client: %w", err)
	}
	return c, nil
}

// openRepository opens the saved images ledger.
func (r *RootCommand) openRepository(ctx context.Context) (*sqlite.Repository, error) {
	dbPath := r.DBPath
	if dbPath == "" {
		dbPath = conventions.DBPath(r.DataDir)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: dbPath,
		Logger: r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}
	return repo, nil
}

func newPrinter(format string, w io.Writer) printer.Printer {
	switch format {
	case formatJSON:
		return printer.NewJSONPrinter(w)
	default:
		return printer.NewTablePrinter(w)
	}
}

func formatFlag(cmd *kingpin.CmdClause, v *string) {
	cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(v, formatTable, formatJSON)
}

// absFSPath returns the path relative to the root filesystem, the format os.DirFS("/")
// expects. Empty paths are kept.
func absFSPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}

	if !filepath.IsAbs(p) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("could not resolve path %s: %w", p, err)
		}
		p = abs
	}

	return p[1:], nil
}
