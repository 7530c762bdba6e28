package lib

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sdklib "github.com/slok/zimg/pkg/lib"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	APIURL string
}

func (c *Config) defaults() error {
	if c.APIURL == "" {
		return fmt.Errorf("image service url is required (ZIMG_INTEGRATION_API_URL)")
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "ZIMG_INTEGRATION"
		envAPIURL     = "ZIMG_INTEGRATION_API_URL"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		APIURL: os.Getenv(envAPIURL),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// UniquePrompt generates a unique prompt to find the test images on the history.
func UniquePrompt(prefix string) string {
	return fmt.Sprintf("%s %d", prefix, time.Now().UnixNano())
}

// NewTestClient creates an SDK client against the configured service with a temp
// data dir for test isolation.
func NewTestClient(t *testing.T, config Config) *sdklib.Client {
	t.Helper()

	client, err := sdklib.New(context.Background(), sdklib.Config{
		APIURL:  config.APIURL,
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

// CleanupImage registers a cleanup function that removes a generated image.
func CleanupImage(t *testing.T, client *sdklib.Client, id string) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		// Best effort cleanup.
		_, _ = client.DeleteImages(ctx, []string{id}, nil)
	})
}
