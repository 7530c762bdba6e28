package history_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/zimg/internal/app/history"
	"github.com/slok/zimg/internal/gallery"
	"github.com/slok/zimg/internal/gallery/gallerymock"
	"github.com/slok/zimg/internal/model"
)

func TestNewService(t *testing.T) {
	_, err := history.NewService(history.ServiceConfig{})
	assert.Error(t, err)
}

func TestServiceRun(t *testing.T) {
	imgs := []model.ImageRecord{{ID: "a"}, {ID: "b"}}

	tests := map[string]struct {
		req     history.Request
		mock    func(m *gallerymock.MockArtifactClient)
		expPage *model.HistoryPage
		expErr  func(t *testing.T, err error)
	}{
		"No page should load the first one.": {
			req: history.Request{},
			mock: func(m *gallerymock.MockArtifactClient) {
				m.On("ListHistory", mock.Anything, 1, 8).Once().Return(&model.HistoryPage{Images: imgs, Total: 2, Page: 1, PageSize: 8}, nil)
			},
			expPage: &model.HistoryPage{Images: imgs, Total: 2, Page: 1, PageSize: 8},
		},

		"A page should be loaded.": {
			req: history.Request{Page: 3},
			mock: func(m *gallerymock.MockArtifactClient) {
				m.On("ListHistory", mock.Anything, 3, 8).Once().Return(&model.HistoryPage{Images: imgs, Total: 18, Page: 3, PageSize: 8}, nil)
			},
			expPage: &model.HistoryPage{Images: imgs, Total: 18, Page: 3, PageSize: 8},
		},

		"An invalid page should fail.": {
			req:  history.Request{Page: -1},
			mock: func(m *gallerymock.MockArtifactClient) {},
			expErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrNotValid)
			},
		},

		"A failed load should fail.": {
			req: history.Request{Page: 1},
			mock: func(m *gallerymock.MockArtifactClient) {
				m.On("ListHistory", mock.Anything, 1, 8).Once().Return(nil, fmt.Errorf("something"))
			},
			expErr: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			m := gallerymock.NewMockArtifactClient(t)
			test.mock(m)

			g, err := gallery.NewManager(gallery.ManagerConfig{Client: m})
			require.NoError(err)

			svc, err := history.NewService(history.ServiceConfig{Gallery: g})
			require.NoError(err)

			page, err := svc.Run(context.Background(), test.req)
			if test.expErr != nil {
				test.expErr(t, err)
				return
			}
			require.NoError(err)
			assert.Equal(t, test.expPage, page)
		})
	}
}
