package cleanup_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/zimg/internal/app/cleanup"
	"github.com/slok/zimg/internal/backend/fake"
	"github.com/slok/zimg/internal/client"
	"github.com/slok/zimg/internal/model"
)

func TestNewService(t *testing.T) {
	_, err := cleanup.NewService(cleanup.ServiceConfig{})
	assert.Error(t, err)
}

func TestServiceRun(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	now := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	b, err := fake.NewBackend(fake.BackendConfig{
		TimeNow:          func() time.Time { return now },
		MaxHistoryImages: 2,
		MaxHistoryAge:    24 * time.Hour,
	})
	require.NoError(err)

	// One too old and three recent ones, the oldest recent one is over the limit.
	b.AddImage(model.ImageRecord{ID: "expired", CreatedAt: now.Add(-48 * time.Hour)}, []byte("x"))
	for i := range 3 {
		b.AddImage(model.ImageRecord{ID: fmt.Sprintf("img-%d", i), CreatedAt: now.Add(time.Duration(-3+i) * time.Hour)}, []byte("x"))
	}

	srv := httptest.NewServer(b)
	defer srv.Close()

	c, err := client.NewClient(client.ClientConfig{BaseURL: srv.URL})
	require.NoError(err)

	svc, err := cleanup.NewService(cleanup.ServiceConfig{Client: c})
	require.NoError(err)

	res, err := svc.Run(context.Background())
	require.NoError(err)
	assert.Equal(&model.CleanupResult{Message: "Cleanup completed", DeletedCount: 2, RemainingCount: 2}, res)

	page, err := c.ListHistory(context.Background(), 1, 10)
	require.NoError(err)
	require.Len(page.Images, 2)
	assert.Equal("img-2", page.Images[0].ID)
	assert.Equal("img-1", page.Images[1].ID)
}

func TestServiceRunError(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	c, err := client.NewClient(client.ClientConfig{BaseURL: url})
	require.NoError(t, err)

	svc, err := cleanup.NewService(cleanup.ServiceConfig{Client: c})
	require.NoError(t, err)

	_, err = svc.Run(context.Background())
	assert.Error(t, err)
}
