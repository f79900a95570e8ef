package view

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/zfogg/threadline/pkg/api"
	clierrors "github.com/zfogg/threadline/pkg/errors"
	"github.com/zfogg/threadline/pkg/logger"
)

// EditorState is the state of the profile editor
type EditorState int

const (
	EditorViewing EditorState = iota
	EditorEditing
	EditorPending
)

func (s EditorState) String() string {
	switch s {
	case EditorViewing:
		return "viewing"
	case EditorEditing:
		return "editing"
	case EditorPending:
		return "pending"
	default:
		return "unknown"
	}
}

// ImageSlot names one of the two profile images
type ImageSlot string

const (
	SlotCover   ImageSlot = "cover"
	SlotProfile ImageSlot = "profile"
)

// ImageState tracks a chosen image from preview to submission
type ImageState int

const (
	ImageNone ImageState = iota
	ImagePreviewed
	ImageSubmitted
)

// ProfileForm holds the editable text fields
type ProfileForm struct {
	Fullname        string
	Username        string
	Email           string
	Bio             string
	Link            string
	CurrentPassword string
	NewPassword     string
}

// ErrNotEditing is returned when the form is used while the editor is closed
var ErrNotEditing = errors.New("profile editor is not open")

// maxImageSize bounds previews read from disk
const maxImageSize = 10 << 20

type imageSlot struct {
	state   ImageState
	dataURI string
}

// ProfileEditor edits the session user's profile from a ProfilePage
type ProfileEditor struct {
	page *ProfilePage

	mu     sync.Mutex
	state  EditorState
	form   ProfileForm
	err    error
	images map[ImageSlot]*imageSlot
}

func newProfileEditor(page *ProfilePage) *ProfileEditor {
	return &ProfileEditor{
		page: page,
		images: map[ImageSlot]*imageSlot{
			SlotCover:   {},
			SlotProfile: {},
		},
	}
}

// State returns the current editor state
func (e *ProfileEditor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the error of the last failed submission
func (e *ProfileEditor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Open populates the form from the current profile snapshot
func (e *ProfileEditor) Open() error {
	if !e.page.IsMyProfile() {
		return clierrors.ForbiddenError()
	}
	profile := e.page.Profile()
	if profile == nil {
		return ErrNotLoaded
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == EditorPending {
		return ErrPending
	}
	e.state = EditorEditing
	e.err = nil
	e.form = ProfileForm{
		Fullname: profile.Fullname,
		Username: profile.Username,
		Email:    profile.Email,
		Bio:      profile.Bio,
		Link:     profile.Link,
	}
	return nil
}

// Form returns a copy of the form
func (e *ProfileEditor) Form() ProfileForm {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form
}

// SetForm replaces the form while editing
func (e *ProfileEditor) SetForm(f ProfileForm) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditorEditing {
		return ErrNotEditing
	}
	e.form = f
	return nil
}

// Cancel closes the editor and discards the form
func (e *ProfileEditor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == EditorEditing {
		e.state = EditorViewing
		e.form = ProfileForm{}
		e.err = nil
	}
}

// Image returns the state of a slot and its preview data URI
func (e *ProfileEditor) Image(slot ImageSlot) (ImageState, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.images[slot]
	if !ok {
		return ImageNone, ""
	}
	return s.state, s.dataURI
}

// HasPreviews reports whether any image waits for submission
func (e *ProfileEditor) HasPreviews() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.images {
		if s.state == ImagePreviewed {
			return true
		}
	}
	return false
}

// PreviewImage reads path in the background and keeps it as a data URI for
// slot. The returned channel yields the outcome once and is then closed.
func (e *ProfileEditor) PreviewImage(ctx context.Context, slot ImageSlot, path string) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer close(done)

		uri, err := ReadDataURI(path)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			done <- err
			return
		}

		e.mu.Lock()
		s, ok := e.images[slot]
		if ok {
			s.state = ImagePreviewed
			s.dataURI = uri
		}
		e.mu.Unlock()

		if !ok {
			done <- fmt.Errorf("unknown image slot %q", slot)
			return
		}
		logger.Debug("Image previewed", "slot", slot, "bytes", len(uri))
		done <- nil
	}()

	return done
}

// ReadDataURI reads an image file into a data:<mime>;base64 URI
func ReadDataURI(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", clierrors.FileNotFoundError(path)
		}
		return "", err
	}
	if info.Size() > maxImageSize {
		return "", clierrors.ValidationError("image", fmt.Sprintf("must be at most %d MB", maxImageSize>>20))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", clierrors.InvalidFormatError("image", mime)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (e *ProfileEditor) previewsLocked(req *api.UpdateProfileRequest) {
	if s := e.images[SlotCover]; s.state == ImagePreviewed {
		req.CoverImg = s.dataURI
	}
	if s := e.images[SlotProfile]; s.state == ImagePreviewed {
		req.ProfileImg = s.dataURI
	}
}

func (e *ProfileEditor) submittedLocked() {
	for _, s := range e.images {
		if s.state == ImagePreviewed {
			s.state = ImageSubmitted
			s.dataURI = ""
		}
	}
}

// Submit sends the form and any previewed images as one update. Success
// closes the editor; failure reopens it with the edits intact.
func (e *ProfileEditor) Submit(ctx context.Context) error {
	me := e.page.app.CurrentUser()
	if me == nil {
		return ErrNoSession
	}

	e.mu.Lock()
	if e.state != EditorEditing {
		e.mu.Unlock()
		return ErrNotEditing
	}
	e.state = EditorPending
	f := e.form
	req := api.UpdateProfileRequest{
		Fullname:        f.Fullname,
		Username:        f.Username,
		Email:           f.Email,
		Bio:             f.Bio,
		Link:            f.Link,
		CurrentPassword: f.CurrentPassword,
		NewPassword:     f.NewPassword,
	}
	e.previewsLocked(&req)
	e.mu.Unlock()

	updated, err := api.UpdateProfile(ctx, me.ID, req)
	if err != nil {
		e.mu.Lock()
		e.state = EditorEditing
		e.err = err
		e.mu.Unlock()
		e.page.app.notifyError(err)
		return err
	}

	e.mu.Lock()
	e.state = EditorViewing
	e.err = nil
	e.form = ProfileForm{}
	e.submittedLocked()
	e.mu.Unlock()

	return e.afterUpdate(ctx, updated)
}

// SubmitImages sends only the previewed images
func (e *ProfileEditor) SubmitImages(ctx context.Context) error {
	me := e.page.app.CurrentUser()
	if me == nil {
		return ErrNoSession
	}

	e.mu.Lock()
	if e.state == EditorPending {
		e.mu.Unlock()
		return ErrPending
	}
	var req api.UpdateProfileRequest
	e.previewsLocked(&req)
	if req.IsEmpty() {
		e.mu.Unlock()
		return clierrors.ValidationError("image", "choose a cover or profile image first")
	}
	prev := e.state
	e.state = EditorPending
	e.mu.Unlock()

	updated, err := api.UpdateProfile(ctx, me.ID, req)

	e.mu.Lock()
	e.state = prev
	if err == nil {
		e.submittedLocked()
	}
	e.mu.Unlock()

	if err != nil {
		e.page.app.notifyError(err)
		return err
	}
	return e.afterUpdate(ctx, updated)
}

func (e *ProfileEditor) afterUpdate(ctx context.Context, updated *api.User) error {
	e.page.app.notifySuccess("Profile updated successfully")
	if updated != nil {
		logger.Debug("Profile updated", "username", updated.Username)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// A renamed profile no longer resolves under its old key
	if err := e.page.app.invalidate(ctx, AuthUserKey, UserProfileRoot); err != nil {
		logger.Warn("Failed to reload profile after update", "error", err)
	}
	return nil
}
