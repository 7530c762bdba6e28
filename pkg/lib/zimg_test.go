package lib_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/zimg/internal/backend/fake"
	"github.com/slok/zimg/pkg/lib"
)

// newTestClient creates a client against an in-memory image service with a temp
// data dir for test isolation.
func newTestClient(t *testing.T, cfg fake.BackendConfig) *lib.Client {
	t.Helper()

	b, err := fake.NewBackend(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	client, err := lib.New(context.Background(), lib.Config{
		APIURL:       srv.URL,
		DataDir:      t.TempDir(),
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func generateImage(t *testing.T, client *lib.Client, prompt string) lib.Image {
	t.Helper()

	task, err := client.Generate(context.Background(), lib.GenerateOpts{
		Prompt:  prompt,
		Quality: lib.QualityFast,
	})
	require.NoError(t, err)
	require.Equal(t, lib.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.Image)

	return *task.Image
}

func TestGenerate(t *testing.T) {
	seed := int64(42)

	tests := map[string]struct {
		opts      lib.GenerateOpts
		expStatus lib.TaskStatus
		expErr    bool
		expIs     error
		check     func(t *testing.T, task lib.Task)
	}{
		"Generating with the defaults should use a square high quality image.": {
			opts:      lib.GenerateOpts{Prompt: "a red fox"},
			expStatus: lib.TaskStatusCompleted,
			check: func(t *testing.T, task lib.Task) {
				require.NotNil(t, task.Image)
				assert.Equal(t, 1024, task.Image.Width)
				assert.Equal(t, 1024, task.Image.Height)
				assert.Equal(t, 8, task.Image.Steps)
				assert.Equal(t, "a red fox", task.Image.Prompt)
				assert.Equal(t, 100, task.Progress)
			},
		},

		"Generating with options should send them to the service.": {
			opts: lib.GenerateOpts{
				Prompt:         "  a lighthouse  ",
				NegativePrompt: "fog",
				AspectRatio:    lib.AspectRatioPortrait,
				Quality:        lib.QualityBalanced,
				Seed:           &seed,
			},
			expStatus: lib.TaskStatusCompleted,
			check: func(t *testing.T, task lib.Task) {
				require.NotNil(t, task.Image)
				assert.Equal(t, 768, task.Image.Width)
				assert.Equal(t, 1024, task.Image.Height)
				assert.Equal(t, 6, task.Image.Steps)
				assert.Equal(t, "a lighthouse", task.Image.Prompt)
				assert.Equal(t, "fog", task.Image.NegativePrompt)
				require.NotNil(t, task.Image.Seed)
				assert.Equal(t, seed, *task.Image.Seed)
			},
		},

		"A failed generation should return the failed task without error.": {
			opts:      lib.GenerateOpts{Prompt: "broken " + fake.FailPromptMarker},
			expStatus: lib.TaskStatusFailed,
			check: func(t *testing.T, task lib.Task) {
				assert.Nil(t, task.Image)
				assert.Equal(t, "simulated generation failure", task.Error)
			},
		},

		"An empty prompt should fail.": {
			opts:   lib.GenerateOpts{Prompt: "   "},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},

		"An unknown aspect ratio should fail.": {
			opts:   lib.GenerateOpts{Prompt: "a red fox", AspectRatio: "2:1"},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},

		"Invalid advanced options should fail.": {
			opts: lib.GenerateOpts{
				Prompt:   "a red fox",
				Advanced: &lib.AdvancedOpts{BatchSize: 3, MaxConcurrentTasks: 1},
			},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, fake.BackendConfig{})

			task, err := client.Generate(context.Background(), test.opts)
			if test.expErr {
				require.Error(t, err)
				if test.expIs != nil {
					assert.ErrorIs(t, err, test.expIs)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expStatus, task.Status)
			if test.check != nil {
				test.check(t, *task)
			}
		})
	}
}

func TestGenerateProgress(t *testing.T) {
	client := newTestClient(t, fake.BackendConfig{})

	var mu sync.Mutex
	var updates []lib.Task
	task, err := client.Generate(context.Background(), lib.GenerateOpts{
		Prompt:  "a red fox",
		Quality: lib.QualityFast,
		OnProgress: func(t lib.Task) {
			mu.Lock()
			defer mu.Unlock()
			updates = append(updates, t)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, lib.TaskStatusCompleted, task.Status)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, updates)
	assert.Equal(t, lib.TaskStatusCompleted, updates[len(updates)-1].Status)
	for i := 1; i < len(updates); i++ {
		assert.GreaterOrEqual(t, updates[i].Progress, updates[i-1].Progress)
	}
}

func TestSubmitAndWaitTask(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	client := newTestClient(t, fake.BackendConfig{})
	ctx := context.Background()

	submitted, err := client.SubmitGeneration(ctx, lib.GenerateOpts{Prompt: "a red fox", Quality: lib.QualityFast})
	require.NoError(err)
	require.NotEmpty(submitted.ID)
	assert.False(submitted.Status.IsTerminal())

	done, err := client.WaitTask(ctx, submitted.ID, nil)
	require.NoError(err)
	assert.Equal(submitted.ID, done.ID)
	assert.Equal(lib.TaskStatusCompleted, done.Status)
	require.NotNil(done.Image)

	got, err := client.GetTask(ctx, submitted.ID)
	require.NoError(err)
	assert.Equal(lib.TaskStatusCompleted, got.Status)
	assert.Equal(done.Image.ID, got.Image.ID)
}

func TestGetTaskErrors(t *testing.T) {
	tests := map[string]struct {
		taskID string
		expIs  error
	}{
		"A missing task should fail with not found.": {
			taskID: "missing",
			expIs:  lib.ErrNotFound,
		},

		"An empty task id should fail with not valid.": {
			taskID: " ",
			expIs:  lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, fake.BackendConfig{})

			_, err := client.GetTask(context.Background(), test.taskID)
			assert.ErrorIs(t, err, test.expIs)
		})
	}
}

func TestWaitTaskPollingFailure(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	client := newTestClient(t, fake.BackendConfig{})

	// A task that can't be polled ends as failed.
	task, err := client.WaitTask(context.Background(), "missing", nil)
	require.NoError(err)
	assert.Equal(lib.TaskStatusFailed, task.Status)
	assert.Contains(task.Error, "404")

	_, err = client.WaitTask(context.Background(), "", nil)
	assert.ErrorIs(err, lib.ErrNotValid)
}

func TestLatestImage(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	client := newTestClient(t, fake.BackendConfig{})
	ctx := context.Background()

	_, err := client.LatestImage(ctx)
	assert.ErrorIs(err, lib.ErrNotFound)

	generateImage(t, client, "first")
	second := generateImage(t, client, "second")

	img, err := client.LatestImage(ctx)
	require.NoError(err)
	assert.Equal(second.ID, img.ID)
	assert.Equal("second", img.Prompt)
}

func TestListHistory(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	client := newTestClient(t, fake.BackendConfig{})
	ctx := context.Background()

	for i := range 3 {
		generateImage(t, client, fmt.Sprintf("image %d", i))
	}

	h, err := client.ListHistory(ctx, 1, 2)
	require.NoError(err)
	assert.Equal(3, h.Total)
	assert.Equal(2, h.TotalPages)
	require.Len(h.Images, 2)
	assert.Equal("image 2", h.Images[0].Prompt)

	h, err = client.ListHistory(ctx, 2, 2)
	require.NoError(err)
	require.Len(h.Images, 1)
	assert.Equal("image 0", h.Images[0].Prompt)

	// Page zero is the first page with the default page size.
	h, err = client.ListHistory(ctx, 0, 0)
	require.NoError(err)
	assert.Equal(1, h.Page)
	assert.Len(h.Images, 3)
}

func TestDownloadImages(t *testing.T) {
	tests := map[string]struct {
		images int
		ids    func(imgs []lib.Image) []string
		opts   *lib.DownloadOpts
		expErr bool
		expIs  error
		exp    func(t *testing.T, imgs []lib.Image, res lib.BatchResult)
	}{
		"Downloading every image of the page should save all of them.": {
			images: 2,
			opts:   &lib.DownloadOpts{All: true, Delay: time.Millisecond},
			exp: func(t *testing.T, imgs []lib.Image, res lib.BatchResult) {
				assert.Len(t, res.Succeeded, 2)
				assert.Empty(t, res.Failed)
				require.Len(t, res.Saved, 2)
				for _, s := range res.Saved {
					assert.FileExists(t, s.Path)
				}
				assert.NoError(t, res.Err())
			},
		},

		"Downloading by id should skip the images not on the page.": {
			images: 1,
			ids:    func(imgs []lib.Image) []string { return []string{imgs[0].ID, "missing"} },
			exp: func(t *testing.T, imgs []lib.Image, res lib.BatchResult) {
				assert.Equal(t, []string{imgs[0].ID}, res.Succeeded)
				assert.Equal(t, []string{"missing"}, res.Skipped)
				require.Len(t, res.Saved, 1)
				assert.Equal(t, imgs[0].ID+".png", res.Saved[0].Filename)
			},
		},

		"Using ids and all together should fail.": {
			images: 1,
			ids:    func(imgs []lib.Image) []string { return []string{imgs[0].ID} },
			opts:   &lib.DownloadOpts{All: true},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},

		"Downloading without ids should fail.": {
			images: 1,
			expErr: true,
			expIs:  lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, fake.BackendConfig{})

			var imgs []lib.Image
			for i := range test.images {
				imgs = append(imgs, generateImage(t, client, fmt.Sprintf("image %d", i)))
			}

			var ids []string
			if test.ids != nil {
				ids = test.ids(imgs)
			}

			opts := test.opts
			if opts != nil {
				opts.OutputDir = t.TempDir()
			}

			res, err := client.DownloadImages(context.Background(), ids, opts)
			if test.expErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, test.expIs)
				return
			}

			require.NoError(t, err)
			test.exp(t, imgs, *res)
		})
	}
}

func TestDeleteImages(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	client := newTestClient(t, fake.BackendConfig{})
	ctx := context.Background()

	first := generateImage(t, client, "first")
	second := generateImage(t, client, "second")

	res, err := client.DeleteImages(ctx, []string{first.ID, "missing"}, nil)
	require.NoError(err)
	assert.Equal([]string{first.ID}, res.Succeeded)
	assert.Equal([]string{"missing"}, res.Skipped)

	h, err := client.ListHistory(ctx, 1, 0)
	require.NoError(err)
	require.Len(h.Images, 1)
	assert.Equal(second.ID, h.Images[0].ID)

	res, err = client.DeleteImages(ctx, nil, &lib.DeleteOpts{All: true})
	require.NoError(err)
	assert.Equal([]string{second.ID}, res.Succeeded)

	h, err = client.ListHistory(ctx, 1, 0)
	require.NoError(err)
	assert.Empty(h.Images)
	assert.Equal(0, h.Total)
}

func TestCleanupHistory(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	client := newTestClient(t, fake.BackendConfig{MaxHistoryImages: 1})

	generateImage(t, client, "first")
	second := generateImage(t, client, "second")

	res, err := client.CleanupHistory(context.Background())
	require.NoError(err)
	assert.Equal(1, res.Deleted)
	assert.Equal(1, res.Remaining)

	img, err := client.LatestImage(context.Background())
	require.NoError(err)
	assert.Equal(second.ID, img.ID)
}

func TestSavedImages(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	client := newTestClient(t, fake.BackendConfig{})
	ctx := context.Background()

	kept := generateImage(t, client, "kept")
	gone := generateImage(t, client, "gone")

	outDir := t.TempDir()
	res, err := client.DownloadImages(ctx, []string{kept.ID, gone.ID}, &lib.DownloadOpts{OutputDir: outDir, Delay: time.Millisecond})
	require.NoError(err)
	require.NoError(res.Err())

	saved, err := client.ListSavedImages(ctx)
	require.NoError(err)
	assert.Len(saved, 2)

	require.NoError(os.Remove(filepath.Join(outDir, gone.ID+".png")))

	pruned, err := client.PruneSavedImages(ctx)
	require.NoError(err)
	require.Len(pruned, 1)
	assert.Equal(gone.ID, pruned[0].ImageID)

	saved, err = client.ListSavedImages(ctx)
	require.NoError(err)
	require.Len(saved, 1)
	assert.Equal(kept.ID, saved[0].ImageID)
	assert.Equal("kept", saved[0].Prompt)
}

func TestInMemoryLedger(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	b, err := fake.NewBackend(fake.BackendConfig{})
	require.NoError(err)
	srv := httptest.NewServer(b)
	defer srv.Close()

	dataDir := t.TempDir()
	client, err := lib.New(context.Background(), lib.Config{
		APIURL:         srv.URL,
		DataDir:        dataDir,
		PollInterval:   5 * time.Millisecond,
		InMemoryLedger: true,
	})
	require.NoError(err)
	defer client.Close()

	img := generateImage(t, client, "in memory")
	res, err := client.DownloadImages(context.Background(), []string{img.ID}, &lib.DownloadOpts{Delay: time.Millisecond})
	require.NoError(err)
	require.NoError(res.Err())

	saved, err := client.ListSavedImages(context.Background())
	require.NoError(err)
	require.Len(saved, 1)
	assert.Equal(img.ID, saved[0].ImageID)

	// Nothing is persisted on disk.
	assert.NoFileExists(filepath.Join(dataDir, "zimg.db"))
}

func TestSystemStatus(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	client := newTestClient(t, fake.BackendConfig{})

	s, err := client.SystemStatus(context.Background())
	require.NoError(err)
	assert.Equal(8, s.CPU.Cores)
	assert.InDelta(12.5, s.CPU.UsagePercent, 0.001)
	assert.InDelta(32, s.Memory.TotalGB, 0.001)
	assert.Nil(s.GPU)
	assert.False(s.UpdatedAt.IsZero())
}

func TestWatchSystemStatus(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	client := newTestClient(t, fake.BackendConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	updates := 0
	s, err := client.WatchSystemStatus(ctx, 5*time.Millisecond, func(s *lib.SystemStatus, err error) {
		assert.NoError(err)
		assert.NotNil(s)

		mu.Lock()
		defer mu.Unlock()
		updates++
		if updates == 3 {
			cancel()
		}
	})
	require.NoError(err)
	require.NotNil(s)
	assert.Equal(8, s.CPU.Cores)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(updates, 3)
}
