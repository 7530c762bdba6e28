package lib_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdklib "github.com/slok/zimg/pkg/lib"
	intlib "github.com/slok/zimg/test/integration/lib"
)

func TestSDKGenerationLifecycle(t *testing.T) {
	config := intlib.NewConfig(t)
	client := intlib.NewTestClient(t, config)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	prompt := intlib.UniquePrompt("sdk harbour")

	// Generate.
	var mu sync.Mutex
	updates := 0
	task, err := client.Generate(ctx, sdklib.GenerateOpts{
		Prompt:      prompt,
		AspectRatio: sdklib.AspectRatioWide,
		Quality:     sdklib.QualityFast,
		OnProgress: func(sdklib.Task) {
			mu.Lock()
			updates++
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	require.Equal(t, sdklib.TaskStatusCompleted, task.Status, task.Error)
	require.NotNil(t, task.Image)
	intlib.CleanupImage(t, client, task.Image.ID)

	assert.Equal(t, prompt, task.Image.Prompt)
	assert.Equal(t, 1024, task.Image.Width)
	assert.Equal(t, 576, task.Image.Height)
	mu.Lock()
	assert.Positive(t, updates)
	mu.Unlock()

	// Latest is the generated image.
	latest, err := client.LatestImage(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.Image.ID, latest.ID)

	// Download.
	res, err := client.DownloadImages(ctx, []string{task.Image.ID}, nil)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.Len(t, res.Saved, 1)
	assert.FileExists(t, res.Saved[0].Path)

	saved, err := client.ListSavedImages(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, task.Image.ID, saved[0].ImageID)

	// Delete.
	res, err = client.DeleteImages(ctx, []string{task.Image.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{task.Image.ID}, res.Succeeded)
}

func TestSDKSystemStatus(t *testing.T) {
	config := intlib.NewConfig(t)
	client := intlib.NewTestClient(t, config)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	status, err := client.SystemStatus(ctx)
	require.NoError(t, err)
	assert.Positive(t, status.CPU.Cores)
	assert.Positive(t, status.Memory.TotalGB)
}

func TestSDKErrors(t *testing.T) {
	config := intlib.NewConfig(t)
	client := intlib.NewTestClient(t, config)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err := client.GetTask(ctx, "nonexistent-task-id")
	assert.True(t, errors.Is(err, sdklib.ErrNotFound), "expected not found, got %v", err)

	_, err = client.Generate(ctx, sdklib.GenerateOpts{Prompt: " "})
	assert.ErrorIs(t, err, sdklib.ErrNotValid)
}
