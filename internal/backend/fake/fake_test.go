package fake_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/zimg/internal/backend/fake"
	"github.com/slok/zimg/internal/client"
	metricsprom "github.com/slok/zimg/internal/metrics/prometheus"
	"github.com/slok/zimg/internal/model"
)

var testReq = model.GenerationRequest{Prompt: "a cat", Width: 1024, Height: 768, NumInferenceSteps: 4}

func newTestEnv(t *testing.T, cfg fake.BackendConfig) (*fake.Backend, *client.Client, string) {
	t.Helper()

	b, err := fake.NewBackend(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	c, err := client.NewClient(client.ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	return b, c, srv.URL
}

func TestBackendTaskLifecycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	_, c, _ := newTestEnv(t, fake.BackendConfig{ImageData: []byte("png")})

	taskID, err := c.SubmitTask(ctx, testReq)
	require.NoError(err)
	require.NotEmpty(taskID)

	var statuses []model.TaskStatus
	var task *model.Task
	for range 10 {
		task, err = c.GetTaskStatus(ctx, taskID)
		require.NoError(err)
		statuses = append(statuses, task.Status)
		if task.Status.IsTerminal() {
			break
		}
	}

	// Submit then fetch returns pending or later.
	assert.Contains([]model.TaskStatus{model.TaskStatusPending, model.TaskStatusProcessing, model.TaskStatusCompleted}, statuses[0])
	assert.Equal([]model.TaskStatus{
		model.TaskStatusProcessing, model.TaskStatusProcessing, model.TaskStatusProcessing, model.TaskStatusCompleted,
	}, statuses)
	assert.Equal(100, task.Progress)
	assert.Equal(4, task.CurrentStep)
	require.NotNil(task.Result)
	assert.Equal("a cat", task.Result.Prompt)
	assert.Equal(1024, task.Result.Width)
	assert.Equal(768, task.Result.Height)
	assert.Equal(int64(3), task.Result.SizeBytes)
	assert.True(task.Result.UseGPU)

	// Terminal tasks don't change.
	again, err := c.GetTaskStatus(ctx, taskID)
	require.NoError(err)
	assert.Equal(task, again)

	latest, err := c.GetLatestArtifact(ctx)
	require.NoError(err)
	assert.Equal(task.Result.ID, latest.ID)

	rc, err := c.DownloadArtifact(ctx, latest.ID)
	require.NoError(err)
	data, err := io.ReadAll(rc)
	require.NoError(err)
	rc.Close()
	assert.Equal("png", string(data))
}

func TestBackendFailingTask(t *testing.T) {
	_, c, _ := newTestEnv(t, fake.BackendConfig{})

	req := testReq
	req.Prompt = "a cat " + fake.FailPromptMarker
	taskID, err := c.SubmitTask(context.Background(), req)
	require.NoError(t, err)

	task, err := c.GetTaskStatus(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, task.Status)
	assert.NotEmpty(t, task.Error)
	assert.Nil(t, task.Result)
}

func TestBackendErrors(t *testing.T) {
	tests := map[string]struct {
		call      func(ctx context.Context, c *client.Client) error
		expStatus int
		expDetail string
	}{
		"A missing task should return not found.": {
			call: func(ctx context.Context, c *client.Client) error {
				_, err := c.GetTaskStatus(ctx, "missing")
				return err
			},
			expStatus: http.StatusNotFound,
			expDetail: "Task not found",
		},

		"Out of bounds sizes should be rejected.": {
			call: func(ctx context.Context, c *client.Client) error {
				_, err := c.SubmitTask(ctx, model.GenerationRequest{Prompt: "a cat", Width: 4096, Height: 1024, NumInferenceSteps: 4})
				return err
			},
			expStatus: http.StatusUnprocessableEntity,
			expDetail: "Input should be between 256 and 2048",
		},

		"Deleting a missing image should return not found.": {
			call: func(ctx context.Context, c *client.Client) error {
				return c.DeleteArtifact(ctx, "missing")
			},
			expStatus: http.StatusNotFound,
			expDetail: "Image not found",
		},

		"Downloading a missing image should return not found.": {
			call: func(ctx context.Context, c *client.Client) error {
				_, err := c.DownloadArtifact(ctx, "missing")
				return err
			},
			expStatus: http.StatusNotFound,
			expDetail: "Image not found",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, c, _ := newTestEnv(t, fake.BackendConfig{})

			err := test.call(context.Background(), c)

			var terr *model.TransportError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, test.expStatus, terr.StatusCode)
			assert.Equal(t, test.expDetail, terr.Detail)
		})
	}
}

func TestBackendEmptyPromptValidationError(t *testing.T) {
	_, _, url := newTestEnv(t, fake.BackendConfig{})

	resp, err := http.Post(url+"/api/generate", "application/json", strings.NewReader(`{"prompt":"","width":1024,"height":1024,"num_inference_steps":4}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), `"loc":["body","prompt"]`)
}

func TestBackendLatestOnEmptyHistory(t *testing.T) {
	_, c, _ := newTestEnv(t, fake.BackendConfig{})

	_, err := c.GetLatestArtifact(context.Background())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBackendHistory(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b, c, _ := newTestEnv(t, fake.BackendConfig{
		TimeNow:          func() time.Time { return now },
		MaxHistoryImages: 5,
		MaxHistoryAge:    24 * time.Hour,
	})
	for i := range 10 {
		b.AddImage(model.ImageRecord{
			ID:        fmt.Sprintf("img-%d", i),
			Filename:  fmt.Sprintf("img-%d.png", i),
			CreatedAt: now.Add(-time.Duration(i) * time.Hour),
		}, []byte("data"))
	}

	page, err := c.ListHistory(ctx, 2, 4)
	require.NoError(err)
	assert.Equal(10, page.Total)
	assert.Equal(3, page.TotalPages())
	require.Len(page.Images, 4)
	assert.Equal("img-4", page.Images[0].ID)
	assert.Equal(int64(4), page.Images[0].SizeBytes)
	assert.Equal(now.Add(-4*time.Hour), page.Images[0].CreatedAt)

	page, err = c.ListHistory(ctx, 4, 4)
	require.NoError(err)
	assert.Empty(page.Images)

	require.NoError(c.DeleteArtifact(ctx, "img-0"))
	latest, err := c.GetLatestArtifact(ctx)
	require.NoError(err)
	assert.Equal("img-1", latest.ID)

	res, err := c.CleanupHistory(ctx)
	require.NoError(err)
	assert.Equal(&model.CleanupResult{Message: "Cleanup completed", DeletedCount: 4, RemainingCount: 5}, res)
}

type staticProvider struct {
	status *model.SystemStatus
	err    error
}

func (s staticProvider) SystemStatus(context.Context) (*model.SystemStatus, error) {
	return s.status, s.err
}

func TestBackendSystemStatus(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		provider  fake.StatusProvider
		expStatus *model.SystemStatus
		expErr    bool
	}{
		"The provider status should be served.": {
			provider: staticProvider{status: &model.SystemStatus{
				CPU:       model.CPUStatus{Cores: 4, FrequencyMHz: 2400, UsagePercent: 10},
				Memory:    model.MemoryStatus{UsedGB: 2, TotalGB: 8, AvailableGB: 6, UsagePercent: 25},
				GPU:       &model.GPUStatus{Available: true, Name: "Fake GPU", UsagePercent: 50, MemoryUsedGB: 4, MemoryTotalGB: 16, TemperatureC: 60},
				Disk:      &model.DiskStatus{Path: "/", TotalGB: 100, UsedGB: 40, FreeGB: 60, UsagePercent: 40},
				Timestamp: ts,
			}},
			expStatus: &model.SystemStatus{
				CPU:       model.CPUStatus{Cores: 4, FrequencyMHz: 2400, UsagePercent: 10},
				Memory:    model.MemoryStatus{UsedGB: 2, TotalGB: 8, AvailableGB: 6, UsagePercent: 25},
				GPU:       &model.GPUStatus{Available: true, Name: "Fake GPU", UsagePercent: 50, MemoryUsedGB: 4, MemoryTotalGB: 16, TemperatureC: 60},
				Disk:      &model.DiskStatus{Path: "/", TotalGB: 100, UsedGB: 40, FreeGB: 60, UsagePercent: 40},
				Timestamp: ts,
			},
		},

		"A provider error should fail.": {
			provider: staticProvider{err: errors.New("boom")},
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, c, _ := newTestEnv(t, fake.BackendConfig{StatusProvider: test.provider})

			status, err := c.GetSystemStatus(context.Background())
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expStatus, status)
		})
	}
}

func TestBackendMetrics(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	rec, err := metricsprom.NewRecorder(metricsprom.RecorderConfig{Registerer: reg})
	require.NoError(err)

	_, c, _ := newTestEnv(t, fake.BackendConfig{MetricsRecorder: rec})

	taskID, err := c.SubmitTask(ctx, testReq)
	require.NoError(err)
	for range 10 {
		task, err := c.GetTaskStatus(ctx, taskID)
		require.NoError(err)
		if task.Status.IsTerminal() {
			break
		}
	}

	exp := `
# HELP zimg_devserver_tasks_finished_total The number of generation tasks that reached a terminal status.
# TYPE zimg_devserver_tasks_finished_total counter
zimg_devserver_tasks_finished_total{status="completed"} 1
# HELP zimg_devserver_history_images The number of images stored on the history.
# TYPE zimg_devserver_history_images gauge
zimg_devserver_history_images 1
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(exp), "zimg_devserver_tasks_finished_total", "zimg_devserver_history_images")
	assert.NoError(t, err)

	// One series for the submit and one for the status requests.
	n, err := testutil.GatherAndCount(reg, "zimg_devserver_http_request_duration_seconds")
	require.NoError(err)
	assert.Equal(t, 2, n)
}
