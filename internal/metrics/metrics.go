package metrics

import (
	"context"
	"time"
)

// Recorder records the image service metrics.
type Recorder interface {
	// ObserveHTTPRequest records a served API request, handler is the route name.
	ObserveHTTPRequest(ctx context.Context, handler, method string, code int, duration time.Duration)
	// IncTaskFinished records a generation task reaching a terminal status.
	IncTaskFinished(ctx context.Context, status string)
	// SetHistoryImages sets the number of images stored on the history.
	SetHistoryImages(ctx context.Context, n int)
}

// Noop recorder doesn't record anything.
const Noop = noop(0)

type noop int

func (noop) ObserveHTTPRequest(context.Context, string, string, int, time.Duration) {}
func (noop) IncTaskFinished(context.Context, string)                                {}
func (noop) SetHistoryImages(context.Context, int)                                  {}
