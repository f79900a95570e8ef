package view_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zfogg/threadline/internal/testutil"
	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/client"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/query"
	"github.com/zfogg/threadline/pkg/view"
)

type harness struct {
	backend *testutil.Backend
	store   *query.Store
	toasts  *output.Recorder
	app     *view.App
	me      *api.User
}

// newHarness logs alice into a fresh fake backend and resolves her session
func newHarness(t *testing.T, opts ...view.AppOption) *harness {
	t.Helper()

	backend := testutil.NewBackend(t)
	me := backend.AddUser("alice")
	client.InitWithBaseURL(backend.URL())
	client.SetSessionCookies([]*http.Cookie{backend.SessionCookieFor(me.ID)})

	store := query.NewStore()
	t.Cleanup(func() { _ = store.Close() })

	toasts := &output.Recorder{}
	app := view.NewApp(store, toasts, opts...)

	session, err := app.Session(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)

	return &harness{backend: backend, store: store, toasts: toasts, app: app, me: me}
}

func (h *harness) loadedFeed(t *testing.T, ft view.FeedType) *view.Feed {
	t.Helper()
	feed := h.app.NewFeed(ft, h.me.Username, h.me.ID)
	t.Cleanup(feed.Close)
	require.NoError(t, feed.Load(context.Background()))
	return feed
}

func (h *harness) fetchCount(key query.Key) int {
	e, _ := h.store.Get(key)
	return e.FetchCount
}
