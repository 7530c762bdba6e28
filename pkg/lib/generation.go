package lib

import (
	"context"
	"fmt"

	"github.com/slok/zimg/internal/app/generate"
	"github.com/slok/zimg/internal/app/taskstatus"
)

// Generate submits an image generation and waits until the task completes or
// fails. The progress is notified with [GenerateOpts].OnProgress.
//
// A failed generation is returned as a [Task] with [TaskStatusFailed], not as an
// error. Errors are returned for invalid options, service failures and context
// cancellation.
func (c *Client) Generate(ctx context.Context, opts GenerateOpts) (*Task, error) {
	return c.generate(ctx, opts, true)
}

// SubmitGeneration submits an image generation and returns the pending task
// without waiting for it. Use [Client.WaitTask] to wait for it later.
func (c *Client) SubmitGeneration(ctx context.Context, opts GenerateOpts) (*Task, error) {
	return c.generate(ctx, opts, false)
}

func (c *Client) generate(ctx context.Context, opts GenerateOpts, wait bool) (*Task, error) {
	tr, err := c.newTracker(opts.OnProgress)
	if err != nil {
		return nil, fmt.Errorf("could not create tracker: %w", err)
	}
	defer tr.Close()

	svc, err := generate.NewService(generate.ServiceConfig{
		Tracker: tr,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, generate.Request{
		Options: toInternalGenerationOptions(opts),
		Wait:    wait,
	})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// GetTask returns the current state of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	svc, err := taskstatus.NewService(taskstatus.ServiceConfig{
		Client: c.api,
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, taskstatus.Request{TaskID: taskID})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// WaitTask polls a task until it completes or fails. Pass a nil onProgress to
// ignore the intermediate updates.
func (c *Client) WaitTask(ctx context.Context, taskID string, onProgress func(Task)) (*Task, error) {
	tr, err := c.newTracker(onProgress)
	if err != nil {
		return nil, fmt.Errorf("could not create tracker: %w", err)
	}
	defer tr.Close()

	svc, err := taskstatus.NewService(taskstatus.ServiceConfig{
		Client:  c.api,
		Tracker: tr,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, taskstatus.Request{TaskID: taskID, Wait: true})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}
