package zimg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/slok/zimg/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
	APIURL string
}

func (c *Config) defaults() error {
	// go test changes the CWD to the test package directory, relative paths would
	// point to the wrong place.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("ZIMG_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("zimg binary not found at %q: %w", c.Binary, err)
	}

	if c.APIURL == "" {
		return fmt.Errorf("image service url is required (ZIMG_INTEGRATION_API_URL)")
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "ZIMG_INTEGRATION"
		envBinary     = "ZIMG_INTEGRATION_BINARY"
		envAPIURL     = "ZIMG_INTEGRATION_API_URL"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
		APIURL: os.Getenv(envAPIURL),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// RunZimgCmd runs a zimg command against the configured service with an isolated
// data dir. It suppresses logging output for cleaner test output.
func RunZimgCmd(ctx context.Context, config Config, dataDir string, args ...string) (stdout, stderr []byte, err error) {
	all := append([]string{"--api-url", config.APIURL, "--data-dir", dataDir}, args...)
	return testutils.RunZimgArgs(ctx, nil, config.Binary, all, true)
}

// RunGenerate generates an image with the fastest quality and waits for it.
func RunGenerate(ctx context.Context, config Config, dataDir, prompt string) (stdout, stderr []byte, err error) {
	return RunZimgCmd(ctx, config, dataDir, "generate", prompt, "--quality", "fast", "--format", "json")
}

// RunRm removes images from the first history page.
func RunRm(ctx context.Context, config Config, dataDir string, ids ...string) (stdout, stderr []byte, err error) {
	return RunZimgCmd(ctx, config, dataDir, append([]string{"rm"}, ids...)...)
}
