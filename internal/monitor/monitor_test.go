package monitor_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/monitor"
)

type scriptedClient struct {
	calls   atomic.Int64
	results []error
}

func (s *scriptedClient) GetSystemStatus(ctx context.Context) (*model.SystemStatus, error) {
	n := int(s.calls.Add(1))
	if n <= len(s.results) && s.results[n-1] != nil {
		return nil, s.results[n-1]
	}
	return &model.SystemStatus{CPU: model.CPUStatus{Cores: n}}, nil
}

type event struct {
	cores int
	err   bool
}

func TestMonitor(t *testing.T) {
	errBoom := errors.New("boom")

	tests := map[string]struct {
		results   []error
		expEvents []event
	}{
		"Successful probes should update the status.": {
			expEvents: []event{{cores: 1}, {cores: 2}, {cores: 3}},
		},

		"A failed probe should keep polling and keep the previous status.": {
			results:   []error{nil, errBoom, nil},
			expEvents: []event{{cores: 1}, {cores: 1, err: true}, {cores: 3}},
		},

		"Failures before the first success should have no status.": {
			results:   []error{errBoom, errBoom, nil},
			expEvents: []event{{err: true}, {err: true}, {cores: 3}},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			var mu sync.Mutex
			var events []event
			enough := make(chan struct{})

			c := &scriptedClient{results: test.results}
			m, err := monitor.NewMonitor(monitor.MonitorConfig{
				Client:   c,
				Interval: 5 * time.Millisecond,
				OnUpdate: func(s *model.SystemStatus, err error) {
					mu.Lock()
					defer mu.Unlock()
					e := event{err: err != nil}
					if s != nil {
						e.cores = s.CPU.Cores
					}
					events = append(events, e)
					if len(events) == len(test.expEvents) {
						close(enough)
					}
				},
			})
			require.NoError(err)

			require.NoError(m.Start(context.Background()))
			select {
			case <-enough:
			case <-time.After(5 * time.Second):
				t.Fatal("not enough updates")
			}
			m.Stop()

			mu.Lock()
			got := append([]event{}, events[:len(test.expEvents)]...)
			mu.Unlock()
			assert.Equal(test.expEvents, got)

			// Error is cleared by the last success.
			status, err := m.Latest()
			assert.NoError(err)
			assert.NotNil(status)
		})
	}
}

func TestMonitorStopsWithContext(t *testing.T) {
	m, err := monitor.NewMonitor(monitor.MonitorConfig{Client: &scriptedClient{}, Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	assert.Nil(t, m.Done())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))
	done := m.Done()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestMonitorConcurrentStartKeepsOnePoller(t *testing.T) {
	client := &scriptedClient{}
	m, err := monitor.NewMonitor(monitor.MonitorConfig{Client: client, Interval: 5 * time.Millisecond})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Start(context.Background()))
		}()
	}
	wg.Wait()
	m.Stop()

	// Once stopped no replaced poller keeps probing.
	time.Sleep(20 * time.Millisecond)
	n := client.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, client.calls.Load())
}

func TestMonitorStopFromUpdate(t *testing.T) {
	var m *monitor.Monitor
	ready := make(chan struct{})
	stopped := make(chan struct{})
	var once sync.Once

	m, err := monitor.NewMonitor(monitor.MonitorConfig{
		Client:   &scriptedClient{},
		Interval: 5 * time.Millisecond,
		OnUpdate: func(*model.SystemStatus, error) {
			<-ready
			once.Do(func() {
				m.Stop()
				close(stopped)
			})
		},
	})
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	close(ready)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("stop from the update callback did not return")
	}
}
