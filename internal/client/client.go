package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
)

const (
	// DefaultBaseURL is the default image service address.
	DefaultBaseURL = "http://localhost:15000"
	// DefaultTimeout is the timeout shared by every call, generation is long running.
	DefaultTimeout = 5 * time.Minute

	apiPrefix = "/api"
)

// ClientConfig configures the image service client.
type ClientConfig struct {
	// BaseURL is the image service address (without the /api prefix).
	BaseURL string
	// Timeout is applied to every call.
	Timeout time.Duration
	// HTTPClient is the HTTP client used for the requests, its timeout is
	// overridden by Timeout.
	HTTPClient *http.Client
	// Logger for logging.
	Logger log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base url %q", c.BaseURL)
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	hc := *c.HTTPClient
	hc.Timeout = c.Timeout
	c.HTTPClient = &hc

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "client.Client"})

	return nil
}

// Client is the image service HTTP client. It never retries, retry cadence is
// owned by the callers polling.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// NewClient returns a new image service client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + apiPrefix,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

// SubmitTask creates a new generation task and returns its ID.
func (c *Client) SubmitTask(ctx context.Context, req model.GenerationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(newGenerateRequestJSON(req))
	if err != nil {
		return "", fmt.Errorf("could not marshal request: %w", err)
	}

	const op = "create task"
	var resp createTaskResponseJSON
	if err := c.doJSON(ctx, op, http.MethodPost, "/generate", bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", &model.TransportError{Op: op, Detail: "missing task id in response"}
	}

	c.logger.Debugf("Task created: %s", resp.TaskID)
	return resp.TaskID, nil
}

// GetTaskStatus returns the current snapshot of a task.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (*model.Task, error) {
	var resp taskJSON
	if err := c.doJSON(ctx, "get task status", http.MethodGet, "/generate/"+url.PathEscape(taskID), nil, &resp); err != nil {
		return nil, err
	}

	task := resp.toModel()
	if task.ID == "" {
		task.ID = taskID
	}
	return task, nil
}

// GetSystemStatus returns the image service host utilization.
func (c *Client) GetSystemStatus(ctx context.Context) (*model.SystemStatus, error) {
	var resp systemStatusJSON
	if err := c.doJSON(ctx, "get system status", http.MethodGet, "/system/status", nil, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// ListHistory returns a page (1-based) of the generation history.
func (c *Client) ListHistory(ctx context.Context, page, pageSize int) (*model.HistoryPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var resp historyJSON
	if err := c.doJSON(ctx, "get history", http.MethodGet, "/history?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	h := resp.toModel()
	if h.PageSize == 0 {
		h.PageSize = pageSize
	}
	return h, nil
}

// DownloadArtifact returns the raw image bytes stream, the caller must close it.
func (c *Client) DownloadArtifact(ctx context.Context, imageID string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, "download image", http.MethodGet, "/download/"+url.PathEscape(imageID), nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DeleteArtifact deletes an image and its metadata.
func (c *Client) DeleteArtifact(ctx context.Context, imageID string) error {
	err := c.doJSON(ctx, "delete image", http.MethodDelete, "/images/"+url.PathEscape(imageID), nil, nil)
	if err != nil {
		return err
	}

	c.logger.Debugf("Image deleted: %s", imageID)
	return nil
}

// GetLatestArtifact returns the newest image. When there are no images yet it returns
// model.ErrNotFound, this is an expected outcome that callers must branch on.
func (c *Client) GetLatestArtifact(ctx context.Context) (*model.ImageRecord, error) {
	var resp imageRecordJSON
	err := c.doJSON(ctx, "get latest image", http.MethodGet, "/images/latest", nil, &resp)
	if err != nil {
		var terr *model.TransportError
		if errors.As(err, &terr) && terr.NotFound() {
			return nil, fmt.Errorf("latest image: %w", model.ErrNotFound)
		}
		return nil, err
	}

	r := resp.toModel()
	return &r, nil
}

// CleanupHistory triggers the remote history retention cleanup.
func (c *Client) CleanupHistory(ctx context.Context) (*model.CleanupResult, error) {
	var resp cleanupJSON
	if err := c.doJSON(ctx, "cleanup history", http.MethodPost, "/history/cleanup", nil, &resp); err != nil {
		return nil, err
	}

	return &model.CleanupResult{
		Message:        resp.Message,
		DeletedCount:   resp.DeletedCount,
		RemainingCount: resp.RemainingCount,
	}, nil
}

// --- Internal helpers ---

var genericErrorMessages = map[string]string{
	"create task":       "Failed to create task",
	"get task status":   "Failed to fetch status",
	"get system status": "Failed to fetch system status",
	"get history":       "Failed to fetch history",
	"download image":    "Failed to download image",
	"delete image":      "Failed to delete image",
	"get latest image":  "Failed to fetch latest image",
	"cleanup history":   "Failed to cleanup history",
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body io.Reader, out any) error {
	resp, err := c.do(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &model.TransportError{Op: op, StatusCode: resp.StatusCode, Detail: "invalid response body", Err: err}
	}

	return nil
}

// do executes the request, on success the caller owns the response body.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader) (*http.Response, error) {
	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debugf("%s %s", method, u)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.TransportError{Op: op, Timeout: isTimeout(err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &model.TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(resp.Body, genericErrorMessages[op]),
		}
	}

	return resp, nil
}

func errorDetail(r io.Reader, fallback string) string {
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil || len(data) == 0 {
		return fallback
	}

	var e errorJSON
	if err := json.Unmarshal(data, &e); err != nil {
		return fallback
	}
	if msg := e.message(); msg != "" {
		return msg
	}
	return fallback
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
