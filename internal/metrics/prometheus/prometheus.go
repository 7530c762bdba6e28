package prometheus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/slok/zimg/internal/metrics"
)

const namespace = "zimg_devserver"

// RecorderConfig is the configuration of the Prometheus recorder.
type RecorderConfig struct {
	Registerer prometheus.Registerer
}

func (c *RecorderConfig) defaults() error {
	if c.Registerer == nil {
		c.Registerer = prometheus.DefaultRegisterer
	}
	return nil
}

// Recorder is a Prometheus implementation of metrics.Recorder.
type Recorder struct {
	httpRequestDuration *prometheus.HistogramVec
	tasksFinished       *prometheus.CounterVec
	historyImages       prometheus.Gauge
}

var _ metrics.Recorder = &Recorder{}

// NewRecorder returns a new Prometheus recorder with its collectors registered.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	r := &Recorder{
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "The latency of the image service API requests.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"handler", "method", "code"}),

		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "finished_total",
			Help:      "The number of generation tasks that reached a terminal status.",
		}, []string{"status"}),

		historyImages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "images",
			Help:      "The number of images stored on the history.",
		}),
	}

	for _, c := range []prometheus.Collector{r.httpRequestDuration, r.tasksFinished, r.historyImages} {
		if err := cfg.Registerer.Register(c); err != nil {
			return nil, fmt.Errorf("could not register collector: %w", err)
		}
	}

	return r, nil
}

func (r *Recorder) ObserveHTTPRequest(_ context.Context, handler, method string, code int, duration time.Duration) {
	r.httpRequestDuration.WithLabelValues(handler, method, strconv.Itoa(code)).Observe(duration.Seconds())
}

func (r *Recorder) IncTaskFinished(_ context.Context, status string) {
	r.tasksFinished.WithLabelValues(status).Inc()
}

func (r *Recorder) SetHistoryImages(_ context.Context, n int) {
	r.historyImages.Set(float64(n))
}
