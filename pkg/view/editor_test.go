package view_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clierrors "github.com/zfogg/threadline/pkg/errors"
	"github.com/zfogg/threadline/pkg/view"
)

// pngBytes is enough of a PNG for content sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func myProfilePage(t *testing.T, h *harness) *view.ProfilePage {
	t.Helper()
	page := h.app.NewProfilePage(h.me.Username)
	t.Cleanup(page.Close)
	require.NoError(t, page.Load(context.Background()))
	return page
}

func TestEditorOpen(t *testing.T) {
	h := newHarness(t)
	page := myProfilePage(t, h)
	editor := page.Editor()

	assert.Equal(t, view.EditorViewing, editor.State())
	require.NoError(t, editor.Open())
	assert.Equal(t, view.EditorEditing, editor.State())

	form := editor.Form()
	assert.Equal(t, h.me.Fullname, form.Fullname)
	assert.Equal(t, "alice", form.Username)
	assert.Equal(t, h.me.Bio, form.Bio)
	assert.Empty(t, form.NewPassword)

	editor.Cancel()
	assert.Equal(t, view.EditorViewing, editor.State())
	assert.ErrorIs(t, editor.SetForm(form), view.ErrNotEditing)
}

func TestEditorOpenOtherProfile(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser("bob")
	page := h.app.NewProfilePage("bob")
	t.Cleanup(page.Close)
	require.NoError(t, page.Load(context.Background()))

	err := page.Editor().Open()
	require.Error(t, err)
	assert.Equal(t, clierrors.ErrorTypeForbidden, clierrors.CategorizeError(err).Type)
	assert.Equal(t, view.EditorViewing, page.Editor().State())
}

func TestEditorSubmit(t *testing.T) {
	h := newHarness(t)
	page := myProfilePage(t, h)
	editor := page.Editor()

	require.NoError(t, editor.Open())
	form := editor.Form()
	form.Bio = "writes Go on weekends"
	form.Link = "https://example.com"
	require.NoError(t, editor.SetForm(form))

	require.NoError(t, editor.Submit(context.Background()))

	assert.Equal(t, view.EditorViewing, editor.State())
	assert.NoError(t, editor.Err())
	assert.Equal(t, "writes Go on weekends", page.Profile().Bio)
	assert.Equal(t, "https://example.com", h.app.CurrentUser().Link)

	last, _ := h.toasts.Last()
	assert.Equal(t, "Profile updated successfully", last.Message)
	assert.Equal(t, 1, h.backend.Count(http.MethodPost, "/users/update/"+h.me.ID))
}

func TestEditorSubmitFailureKeepsEdits(t *testing.T) {
	h := newHarness(t)
	page := myProfilePage(t, h)
	editor := page.Editor()

	require.NoError(t, editor.Open())
	form := editor.Form()
	form.Bio = "unsaved bio"
	form.NewPassword = "hunter22"
	require.NoError(t, editor.SetForm(form))

	err := editor.Submit(context.Background())
	require.Error(t, err)

	assert.Equal(t, view.EditorEditing, editor.State())
	assert.EqualError(t, editor.Err(), "Please provide both current password and new password")
	assert.Equal(t, form, editor.Form())
	assert.NotEqual(t, "unsaved bio", page.Profile().Bio)

	last, _ := h.toasts.Last()
	assert.Equal(t, "error", last.Level)

	// fixing the form and resubmitting succeeds
	form.CurrentPassword = "password"
	require.NoError(t, editor.SetForm(form))
	require.NoError(t, editor.Submit(context.Background()))
	assert.Equal(t, "unsaved bio", page.Profile().Bio)
}

func TestEditorSubmitWhenClosed(t *testing.T) {
	h := newHarness(t)
	page := myProfilePage(t, h)
	assert.ErrorIs(t, page.Editor().Submit(context.Background()), view.ErrNotEditing)
}

func TestPreviewImage(t *testing.T) {
	h := newHarness(t)
	page := myProfilePage(t, h)
	editor := page.Editor()

	t.Run("image becomes a data uri", func(t *testing.T) {
		path := writeFile(t, "cover.png", pngBytes)
		require.NoError(t, <-editor.PreviewImage(context.Background(), view.SlotCover, path))

		state, uri := editor.Image(view.SlotCover)
		assert.Equal(t, view.ImagePreviewed, state)
		assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
		assert.True(t, editor.HasPreviews())

		state, _ = editor.Image(view.SlotProfile)
		assert.Equal(t, view.ImageNone, state)
	})

	t.Run("non image is rejected", func(t *testing.T) {
		path := writeFile(t, "notes.txt", []byte("just some text"))
		err := <-editor.PreviewImage(context.Background(), view.SlotProfile, path)
		require.Error(t, err)
		assert.Equal(t, clierrors.ErrorTypeInvalidFormat, clierrors.CategorizeError(err).Type)

		state, _ := editor.Image(view.SlotProfile)
		assert.Equal(t, view.ImageNone, state)
	})

	t.Run("missing file", func(t *testing.T) {
		err := <-editor.PreviewImage(context.Background(), view.SlotProfile, filepath.Join(t.TempDir(), "nope.png"))
		require.Error(t, err)
		assert.Equal(t, clierrors.ErrorTypeFileNotFound, clierrors.CategorizeError(err).Type)
	})

	t.Run("cancelled before it lands", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		path := writeFile(t, "avatar.png", pngBytes)
		err := <-editor.PreviewImage(ctx, view.SlotProfile, path)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestSubmitClearsPreviews(t *testing.T) {
	h := newHarness(t)
	page := myProfilePage(t, h)
	editor := page.Editor()

	require.NoError(t, editor.Open())
	require.NoError(t, <-editor.PreviewImage(context.Background(), view.SlotCover, writeFile(t, "c.png", pngBytes)))
	require.NoError(t, editor.Submit(context.Background()))

	state, uri := editor.Image(view.SlotCover)
	assert.Equal(t, view.ImageSubmitted, state)
	assert.Empty(t, uri)
	assert.False(t, editor.HasPreviews())

	stored, _ := h.backend.User(h.me.ID)
	assert.True(t, strings.HasPrefix(stored.CoverImg, "data:image/png;base64,"))
	assert.Empty(t, stored.ProfileImg)
}

func TestSubmitImages(t *testing.T) {
	h := newHarness(t)
	page := myProfilePage(t, h)
	editor := page.Editor()

	err := editor.SubmitImages(context.Background())
	require.Error(t, err)
	assert.Equal(t, clierrors.ErrorTypeValidation, clierrors.CategorizeError(err).Type)
	assert.Equal(t, 0, h.backend.Count(http.MethodPost, "/users/update/"+h.me.ID))

	require.NoError(t, <-editor.PreviewImage(context.Background(), view.SlotProfile, writeFile(t, "a.png", pngBytes)))
	require.NoError(t, editor.SubmitImages(context.Background()))

	assert.Equal(t, view.EditorViewing, editor.State())
	state, _ := editor.Image(view.SlotProfile)
	assert.Equal(t, view.ImageSubmitted, state)

	stored, _ := h.backend.User(h.me.ID)
	assert.True(t, strings.HasPrefix(stored.ProfileImg, "data:image/png;base64,"))
	assert.Equal(t, h.me.Bio, stored.Bio)
	assert.True(t, strings.HasPrefix(page.Profile().ProfileImg, "data:image/png"))
}
