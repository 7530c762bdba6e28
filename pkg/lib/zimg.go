package lib

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/slok/zimg/internal/client"
	"github.com/slok/zimg/internal/conventions"
	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/storage"
	"github.com/slok/zimg/internal/storage/memory"
	"github.com/slok/zimg/internal/storage/sqlite"
	"github.com/slok/zimg/internal/tracker"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will talk to the service on localhost and use ~/.zimg for local data.
type Config struct {
	// APIURL is the image service base URL.
	// Default: http://localhost:15000.
	APIURL string

	// Timeout is the timeout of every service call.
	// Default: 5m.
	Timeout time.Duration

	// HTTPClient is the HTTP client used for the service calls, its timeout is
	// replaced by Timeout.
	// Default: a new http.Client.
	HTTPClient *http.Client

	// DataDir is the base directory for zimg local data (downloads, ledger).
	// Default: ~/.zimg.
	DataDir string

	// DBPath is the SQLite database path of the downloaded images ledger.
	// Default: <DataDir>/zimg.db.
	DBPath string

	// InMemoryLedger keeps the downloaded images ledger in memory, nothing is
	// persisted and DBPath is ignored.
	InMemoryLedger bool

	// OutputDir is the default directory for downloaded images.
	// Default: <DataDir>/downloads.
	OutputDir string

	// PollInterval is the interval between task status checks.
	// Default: 2s.
	PollInterval time.Duration

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.APIURL == "" {
		c.APIURL = conventions.DefaultAPIURL
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, conventions.DefaultDataDir)
	}

	if c.DBPath == "" {
		c.DBPath = conventions.DBPath(c.DataDir)
	}

	if c.OutputDir == "" {
		c.OutputDir = conventions.DownloadsPath(c.DataDir)
	}

	if c.PollInterval <= 0 {
		c.PollInterval = tracker.DefaultInterval
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point for using the image service programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	api          *client.Client
	repo         storage.Repository
	logger       log.Logger
	outputDir    string
	pollInterval time.Duration
	closeFn      func() error
}

// New creates a new SDK client, the downloads ledger is backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	api, err := client.NewClient(client.ClientConfig{
		BaseURL:    cfg.APIURL,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create api client: %w", err)
	}

	c := &Client{
		api:          api,
		logger:       cfg.Logger,
		outputDir:    cfg.OutputDir,
		pollInterval: cfg.PollInterval,
	}

	if cfg.InMemoryLedger {
		repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
		c.repo = repo
		return c, nil
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}
	c.repo = repo
	c.closeFn = repo.Close

	return c, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// newTracker returns a tracker for a single task, every generation gets its own
// so concurrent calls don't supersede each other.
func (c *Client) newTracker(onProgress func(Task)) (*tracker.Tracker, error) {
	var onUpdate func(model.Task)
	if onProgress != nil {
		onUpdate = func(t model.Task) { onProgress(fromInternalTask(t)) }
	}

	return tracker.NewTracker(tracker.TrackerConfig{
		Client:   c.api,
		Interval: c.pollInterval,
		OnUpdate: onUpdate,
		Logger:   c.logger,
	})
}
