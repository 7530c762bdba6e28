package download_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/zimg/internal/app/download"
	"github.com/slok/zimg/internal/gallery"
	"github.com/slok/zimg/internal/gallery/gallerymock"
	"github.com/slok/zimg/internal/model"
)

func TestNewService(t *testing.T) {
	_, err := download.NewService(download.ServiceConfig{})
	assert.Error(t, err)
}

func TestServiceRun(t *testing.T) {
	imgA := model.ImageRecord{ID: "a", Filename: "a.png"}
	imgB := model.ImageRecord{ID: "b", Filename: "b.png"}
	page := &model.HistoryPage{Images: []model.ImageRecord{imgA, imgB}, Total: 2, Page: 1, PageSize: 8}
	savedA := &model.SavedArtifact{ID: "s-a", ImageID: "a", Path: "/out/a.png"}
	savedB := &model.SavedArtifact{ID: "s-b", ImageID: "b", Path: "/out/b.png"}

	tests := map[string]struct {
		req    download.Request
		mock   func(c *gallerymock.MockArtifactClient, s *gallerymock.MockArtifactSaver)
		expRes *gallery.BatchResult
		expErr func(t *testing.T, err error)
	}{
		"Downloading the selected ids should save them in order.": {
			req: download.Request{IDs: []string{"b", "a", "b"}},
			mock: func(c *gallerymock.MockArtifactClient, s *gallerymock.MockArtifactSaver) {
				c.On("ListHistory", mock.Anything, 1, 8).Once().Return(page, nil)
				s.On("Save", mock.Anything, imgB).Once().Return(savedB, nil)
				s.On("Save", mock.Anything, imgA).Once().Return(savedA, nil)
			},
			expRes: &gallery.BatchResult{
				Policy:    gallery.PolicyAbortOnFirstFailure,
				Succeeded: []string{"b", "a"},
				Saved:     []model.SavedArtifact{*savedB, *savedA},
			},
		},

		"Downloading all should save every image of the page.": {
			req: download.Request{All: true, Page: 2},
			mock: func(c *gallerymock.MockArtifactClient, s *gallerymock.MockArtifactSaver) {
				c.On("ListHistory", mock.Anything, 2, 8).Once().Return(page, nil)
				s.On("Save", mock.Anything, imgA).Once().Return(savedA, nil)
				s.On("Save", mock.Anything, imgB).Once().Return(savedB, nil)
			},
			expRes: &gallery.BatchResult{
				Policy:    gallery.PolicyAbortOnFirstFailure,
				Succeeded: []string{"a", "b"},
				Saved:     []model.SavedArtifact{*savedA, *savedB},
			},
		},

		"Ids not on the page should be skipped.": {
			req: download.Request{IDs: []string{"x", "a"}},
			mock: func(c *gallerymock.MockArtifactClient, s *gallerymock.MockArtifactSaver) {
				c.On("ListHistory", mock.Anything, 1, 8).Once().Return(page, nil)
				s.On("Save", mock.Anything, imgA).Once().Return(savedA, nil)
			},
			expRes: &gallery.BatchResult{
				Policy:    gallery.PolicyAbortOnFirstFailure,
				Succeeded: []string{"a"},
				Skipped:   []string{"x"},
				Saved:     []model.SavedArtifact{*savedA},
			},
		},

		"A failed save should abort the rest.": {
			req: download.Request{All: true},
			mock: func(c *gallerymock.MockArtifactClient, s *gallerymock.MockArtifactSaver) {
				c.On("ListHistory", mock.Anything, 1, 8).Once().Return(page, nil)
				s.On("Save", mock.Anything, imgA).Once().Return(nil, fmt.Errorf("disk full"))
			},
			expRes: &gallery.BatchResult{
				Policy:  gallery.PolicyAbortOnFirstFailure,
				Failed:  []gallery.BatchFailure{{ID: "a", Err: fmt.Errorf("disk full")}},
				Aborted: []string{"b"},
			},
		},

		"A failed page load should fail.": {
			req: download.Request{IDs: []string{"a"}},
			mock: func(c *gallerymock.MockArtifactClient, s *gallerymock.MockArtifactSaver) {
				c.On("ListHistory", mock.Anything, 1, 8).Once().Return(nil, fmt.Errorf("something"))
			},
			expErr: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},

		"Without ids nor all should fail.": {
			req:  download.Request{},
			mock: func(c *gallerymock.MockArtifactClient, s *gallerymock.MockArtifactSaver) {},
			expErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrNotValid)
			},
		},

		"Ids with all should fail.": {
			req:  download.Request{IDs: []string{"a"}, All: true},
			mock: func(c *gallerymock.MockArtifactClient, s *gallerymock.MockArtifactSaver) {},
			expErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrNotValid)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			c := gallerymock.NewMockArtifactClient(t)
			s := gallerymock.NewMockArtifactSaver(t)
			test.mock(c, s)

			g, err := gallery.NewManager(gallery.ManagerConfig{Client: c, Saver: s, DownloadDelay: time.Millisecond})
			require.NoError(err)

			svc, err := download.NewService(download.ServiceConfig{Gallery: g})
			require.NoError(err)

			res, err := svc.Run(context.Background(), test.req)
			if test.expErr != nil {
				test.expErr(t, err)
				return
			}
			require.NoError(err)
			assert.Equal(t, test.expRes, res)
		})
	}
}
