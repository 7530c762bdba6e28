package lib

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/zimg/internal/app/systemstatus"
	"github.com/slok/zimg/internal/model"
)

// SystemStatus returns the current image service host utilization.
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	return c.systemStatus(ctx, systemstatus.Request{}, 0)
}

// WatchSystemStatus polls the image service host utilization every interval
// until the context ends, a zero interval uses 3s. Every probe is notified with
// onUpdate, a failed probe gets the last known status (nil if none) and the
// error. Failed probes don't stop the watch.
//
// It blocks and returns the last known status once the context ends.
func (c *Client) WatchSystemStatus(ctx context.Context, interval time.Duration, onUpdate func(*SystemStatus, error)) (*SystemStatus, error) {
	req := systemstatus.Request{Watch: true}
	if onUpdate != nil {
		req.OnUpdate = func(s *model.SystemStatus, err error) {
			var status *SystemStatus
			if s != nil {
				st := fromInternalSystemStatus(*s)
				status = &st
			}
			onUpdate(status, mapError(err))
		}
	}

	return c.systemStatus(ctx, req, interval)
}

func (c *Client) systemStatus(ctx context.Context, req systemstatus.Request, interval time.Duration) (*SystemStatus, error) {
	svc, err := systemstatus.NewService(systemstatus.ServiceConfig{
		Client:        c.api,
		WatchInterval: interval,
		Logger:        c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	s, err := svc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	if s == nil {
		return nil, nil
	}

	result := fromInternalSystemStatus(*s)
	return &result, nil
}
