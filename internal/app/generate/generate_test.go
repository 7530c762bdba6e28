package generate_test

import (
	"context"
	"fmt"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/zimg/internal/app/generate"
	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
	storageio "github.com/slok/zimg/internal/storage/io"
	"github.com/slok/zimg/internal/tracker"
	"github.com/slok/zimg/internal/tracker/trackermock"
)

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config func(tr *tracker.Tracker) generate.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: func(tr *tracker.Tracker) generate.ServiceConfig {
				return generate.ServiceConfig{Tracker: tr, Logger: log.Noop}
			},
		},
		"missing tracker should fail": {
			config: func(tr *tracker.Tracker) generate.ServiceConfig {
				return generate.ServiceConfig{Logger: log.Noop}
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			tr, err := tracker.NewTracker(tracker.TrackerConfig{Client: trackermock.NewMockTaskClient(t)})
			require.NoError(err)

			svc, err := generate.NewService(test.config(tr))
			if test.expErr {
				require.Error(err)
				require.Nil(svc)
			} else {
				require.NoError(err)
				require.NotNil(svc)
			}
		})
	}
}

func TestServiceRun(t *testing.T) {
	seed := int64(7)
	result := &model.ImageRecord{ID: "img-1", Filename: "img-1.png"}
	optsFS := fstest.MapFS{
		"req.yaml": {Data: []byte("prompt: from file\nnegative_prompt: blurry\nquality: fast\naspect_ratio: \"16:9\"\n")},
	}

	tests := map[string]struct {
		withRepo bool
		req      generate.Request
		mock     func(m *trackermock.MockTaskClient)
		expTask  func(t *testing.T, task *model.Task)
		expErr   func(t *testing.T, err error)
	}{
		"Waiting should return the final task.": {
			req: generate.Request{
				Options: model.GenerationOptions{Prompt: "a cat", AspectRatio: model.AspectRatioLandscape, Quality: model.QualityBalanced, Seed: &seed},
				Wait:    true,
			},
			mock: func(m *trackermock.MockTaskClient) {
				exp := model.GenerationRequest{Prompt: "a cat", Width: 1024, Height: 768, NumInferenceSteps: 6, Seed: &seed}
				m.On("SubmitTask", mock.Anything, exp).Once().Return("t1", nil)
				m.On("GetTaskStatus", mock.Anything, "t1").Once().Return(&model.Task{ID: "t1", Status: model.TaskStatusProcessing, Progress: 50}, nil)
				m.On("GetTaskStatus", mock.Anything, "t1").Once().Return(&model.Task{ID: "t1", Status: model.TaskStatusCompleted, Progress: 100, Result: result}, nil)
			},
			expTask: func(t *testing.T, task *model.Task) {
				assert.Equal(t, "t1", task.ID)
				assert.Equal(t, model.TaskStatusCompleted, task.Status)
				assert.Equal(t, result, task.Result)
			},
		},

		"Waiting on a task that fails should return the failed task.": {
			req: generate.Request{Options: model.GenerationOptions{Prompt: "a cat"}, Wait: true},
			mock: func(m *trackermock.MockTaskClient) {
				m.On("SubmitTask", mock.Anything, mock.Anything).Once().Return("t1", nil)
				m.On("GetTaskStatus", mock.Anything, "t1").Once().Return(&model.Task{ID: "t1", Status: model.TaskStatusFailed, Error: "boom"}, nil)
			},
			expTask: func(t *testing.T, task *model.Task) {
				assert.Equal(t, model.TaskStatusFailed, task.Status)
				assert.Equal(t, "boom", task.Error)
			},
		},

		"Not waiting should return the task right after the submission.": {
			req: generate.Request{Options: model.GenerationOptions{Prompt: "a cat"}},
			mock: func(m *trackermock.MockTaskClient) {
				m.On("SubmitTask", mock.Anything, mock.Anything).Once().Return("t1", nil)
				m.On("GetTaskStatus", mock.Anything, "t1").Maybe().Return(&model.Task{ID: "t1", Status: model.TaskStatusProcessing}, nil)
			},
			expTask: func(t *testing.T, task *model.Task) {
				assert.Equal(t, "t1", task.ID)
				assert.False(t, task.Status.IsTerminal())
			},
		},

		"An empty prompt should fail without submitting.": {
			req:  generate.Request{Options: model.GenerationOptions{Prompt: "   "}},
			mock: func(m *trackermock.MockTaskClient) {},
			expErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrNotValid)
			},
		},

		"A rejected submission should fail.": {
			req: generate.Request{Options: model.GenerationOptions{Prompt: "a cat"}},
			mock: func(m *trackermock.MockTaskClient) {
				m.On("SubmitTask", mock.Anything, mock.Anything).Once().Return("", fmt.Errorf("something"))
			},
			expErr: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},

		"Options from a file should be overridden by the set options.": {
			withRepo: true,
			req:      generate.Request{OptionsFile: "req.yaml", Options: model.GenerationOptions{Prompt: "from flags"}},
			mock: func(m *trackermock.MockTaskClient) {
				exp := model.GenerationRequest{Prompt: "from flags", NegativePrompt: "blurry", Width: 1024, Height: 576, NumInferenceSteps: 4}
				m.On("SubmitTask", mock.Anything, exp).Once().Return("t1", nil)
				m.On("GetTaskStatus", mock.Anything, "t1").Maybe().Return(&model.Task{ID: "t1", Status: model.TaskStatusProcessing}, nil)
			},
			expTask: func(t *testing.T, task *model.Task) {
				assert.Equal(t, "t1", task.ID)
			},
		},

		"A missing options file should fail.": {
			withRepo: true,
			req:      generate.Request{OptionsFile: "missing.yaml"},
			mock:     func(m *trackermock.MockTaskClient) {},
			expErr: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},

		"An options file without a repository should fail.": {
			req:  generate.Request{OptionsFile: "req.yaml"},
			mock: func(m *trackermock.MockTaskClient) {},
			expErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrNotValid)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			m := trackermock.NewMockTaskClient(t)
			test.mock(m)

			tr, err := tracker.NewTracker(tracker.TrackerConfig{Client: m, Interval: 5 * time.Millisecond})
			require.NoError(err)
			t.Cleanup(tr.Close)

			cfg := generate.ServiceConfig{Tracker: tr}
			if test.withRepo {
				cfg.OptionsRepository = storageio.NewGenerationYAMLRepository(optsFS)
			}
			svc, err := generate.NewService(cfg)
			require.NoError(err)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			task, err := svc.Run(ctx, test.req)
			if test.expErr != nil {
				test.expErr(t, err)
				return
			}
			require.NoError(err)
			require.NotNil(task)
			test.expTask(t, task)
		})
	}
}
