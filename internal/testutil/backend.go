// Package testutil provides an in-memory fake of the social backend for tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	json "github.com/json-iterator/go"
	"github.com/zfogg/threadline/pkg/api"
)

// SessionCookie is the cookie name the fake backend issues
const SessionCookie = "jwt"

type failure struct {
	status  int
	message string
}

// Backend is a stateful fake of the REST backend. Sessions are cookies whose
// value is the user id.
type Backend struct {
	Server *httptest.Server

	mu            sync.Mutex
	users         map[string]*api.User
	posts         []*api.Post
	notifications map[string][]api.Notification
	counts        map[string]int
	failures      map[string]failure
	faker         *gofakeit.Faker
	nextID        int
}

// NewBackend starts a fake backend that is closed when the test ends
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		users:         make(map[string]*api.User),
		notifications: make(map[string][]api.Notification),
		counts:        make(map[string]int),
		failures:      make(map[string]failure),
		faker:         gofakeit.New(42),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", b.handleMe)
	mux.HandleFunc("POST /auth/login", b.handleLogin)
	mux.HandleFunc("POST /auth/signup", b.handleSignup)
	mux.HandleFunc("POST /auth/logout", b.handleLogout)
	mux.HandleFunc("GET /posts/all", b.handleAllPosts)
	mux.HandleFunc("GET /posts/flowing", b.handleFollowingPosts)
	mux.HandleFunc("GET /posts/user/{username}", b.handleUserPosts)
	mux.HandleFunc("GET /posts/likePost/{id}", b.handleLikedPosts)
	mux.HandleFunc("POST /posts/create", b.handleCreatePost)
	mux.HandleFunc("POST /posts/like/{id}", b.handleLike)
	mux.HandleFunc("POST /posts/comment/{id}", b.handleComment)
	mux.HandleFunc("DELETE /posts/{id}", b.handleDeletePost)
	mux.HandleFunc("GET /users/profile/{username}", b.handleProfile)
	mux.HandleFunc("GET /users/suggested", b.handleSuggested)
	mux.HandleFunc("POST /users/follow/{id}", b.handleFollow)
	mux.HandleFunc("POST /users/update/{id}", b.handleUpdate)
	mux.HandleFunc("GET /notifications", b.handleNotifications)
	mux.HandleFunc("DELETE /notifications", b.handleDeleteNotifications)

	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.counts[key]++
		f, failing := b.failures[key]
		b.mu.Unlock()

		if failing {
			writeJSON(w, f.status, api.ErrorResponse{Message: f.message})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.Server.Close)

	return b
}

// URL returns the base URL of the fake backend
func (b *Backend) URL() string {
	return b.Server.URL
}

// Count returns how many times "METHOD /path" was requested
func (b *Backend) Count(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[method+" "+path]
}

// Fail makes "METHOD /path" answer with status and a JSON message until Recover
func (b *Backend) Fail(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, message: message}
}

// Recover clears a failure installed with Fail
func (b *Backend) Recover(method, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, method+" "+path)
}

func (b *Backend) newID() string {
	b.nextID++
	return strings.ReplaceAll(b.faker.UUID(), "-", "")[:20] + string(rune('a'+b.nextID%26))
}

// AddUser registers a user with generated profile fields
func (b *Backend) AddUser(username string) *api.User {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := &api.User{
		ID:        b.newID(),
		Username:  username,
		Fullname:  b.faker.Name(),
		Email:     b.faker.Email(),
		Bio:       b.faker.Sentence(6),
		Followers: []string{},
		Following: []string{},
		CreatedAt: time.Now().Add(-30 * 24 * time.Hour).UTC(),
	}
	b.users[u.ID] = u
	copied := *u
	return &copied
}

// AddPost creates a post owned by ownerID, newest first like the backend
func (b *Backend) AddPost(ownerID, text string) *api.Post {
	b.mu.Lock()
	defer b.mu.Unlock()

	if text == "" {
		text = b.faker.Sentence(10)
	}
	p := &api.Post{
		ID:        b.newID(),
		User:      *b.users[ownerID],
		Text:      text,
		Liked:     []string{},
		Comments:  []api.Comment{},
		CreatedAt: time.Now().UTC(),
	}
	b.posts = append([]*api.Post{p}, b.posts...)
	return p
}

// Follow makes followerID follow targetID
func (b *Backend) Follow(followerID, targetID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toggleFollowLocked(followerID, targetID)
}

// SessionCookieFor returns the cookie that authenticates as userID
func (b *Backend) SessionCookieFor(userID string) *http.Cookie {
	return &http.Cookie{Name: SessionCookie, Value: userID, Path: "/"}
}

// Post returns a copy of the stored post
func (b *Backend) Post(id string) (api.Post, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.posts {
		if p.ID == id {
			return *p, true
		}
	}
	return api.Post{}, false
}

// User returns a copy of the stored user
func (b *Backend) User(id string) (api.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return api.User{}, false
	}
	return *u, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *Backend) sessionUser(r *http.Request) *api.User {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	return b.users[c.Value]
}

func (b *Backend) requireSession(w http.ResponseWriter, r *http.Request) *api.User {
	u := b.sessionUser(r)
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Message: api.UnauthorizedMessage})
	}
	return u
}

func (b *Backend) findUserByName(username string) *api.User {
	for _, u := range b.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.requireSession(w, r)
	if u == nil {
		return
	}
	writeJSON(w, http.StatusOK, api.AuthUser{User: *u})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "Invalid request"})
		return
	}
	u := b.findUserByName(req.Username)
	if u == nil || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "Invalid username or password"})
		return
	}
	http.SetCookie(w, b.SessionCookieFor(u.ID))
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "Invalid request"})
		return
	}

	b.mu.Lock()
	taken := b.findUserByName(req.Username) != nil
	b.mu.Unlock()
	if taken {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "Username is already taken"})
		return
	}

	u := b.AddUser(req.Username)
	b.mu.Lock()
	b.users[u.ID].Fullname = req.Fullname
	b.users[u.ID].Email = req.Email
	stored := *b.users[u.ID]
	b.mu.Unlock()

	http.SetCookie(w, b.SessionCookieFor(u.ID))
	writeJSON(w, http.StatusCreated, stored)
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Logged out successfully"})
}

func (b *Backend) writePosts(w http.ResponseWriter, keep func(*api.Post) bool) {
	out := make([]*api.Post, 0, len(b.posts))
	for _, p := range b.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleAllPosts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.requireSession(w, r) == nil {
		return
	}
	b.writePosts(w, func(*api.Post) bool { return true })
}

func (b *Backend) handleFollowingPosts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	me := b.requireSession(w, r)
	if me == nil {
		return
	}
	b.writePosts(w, func(p *api.Post) bool { return me.IsFollowing(p.User.ID) })
}

func (b *Backend) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.requireSession(w, r) == nil {
		return
	}
	u := b.findUserByName(r.PathValue("username"))
	if u == nil {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "User not found"})
		return
	}
	b.writePosts(w, func(p *api.Post) bool { return p.User.ID == u.ID })
}

func (b *Backend) handleLikedPosts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.requireSession(w, r) == nil {
		return
	}
	id := r.PathValue("id")
	if _, ok := b.users[id]; !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "User not found"})
		return
	}
	b.writePosts(w, func(p *api.Post) bool { return p.LikedBy(id) })
}

func (b *Backend) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req api.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "Invalid request"})
		return
	}

	b.mu.Lock()
	me := b.requireSession(w, r)
	b.mu.Unlock()
	if me == nil {
		return
	}
	if req.Text == "" && req.Img == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "Post must have text or image"})
		return
	}

	p := b.AddPost(me.ID, req.Text)
	b.mu.Lock()
	p.Img = req.Img
	stored := *p
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, stored)
}

func (b *Backend) postByID(id string) *api.Post {
	for _, p := range b.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (b *Backend) handleLike(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	me := b.requireSession(w, r)
	if me == nil {
		return
	}
	p := b.postByID(r.PathValue("id"))
	if p == nil {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "Post not found"})
		return
	}

	if p.LikedBy(me.ID) {
		kept := make([]string, 0, len(p.Liked))
		for _, id := range p.Liked {
			if id != me.ID {
				kept = append(kept, id)
			}
		}
		p.Liked = kept
	} else {
		p.Liked = append(p.Liked, me.ID)
		if p.User.ID != me.ID {
			b.notifications[p.User.ID] = append(b.notifications[p.User.ID], api.Notification{
				ID: b.newID(), From: *me, To: p.User.ID, Type: "like", CreatedAt: time.Now().UTC(),
			})
		}
	}
	writeJSON(w, http.StatusOK, p.Liked)
}

func (b *Backend) handleComment(w http.ResponseWriter, r *http.Request) {
	var req api.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "Invalid request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	me := b.requireSession(w, r)
	if me == nil {
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "Text field is required"})
		return
	}
	p := b.postByID(r.PathValue("id"))
	if p == nil {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "Post not found"})
		return
	}
	p.Comments = append(p.Comments, api.Comment{ID: b.newID(), Text: req.Text, User: *me})
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	me := b.requireSession(w, r)
	if me == nil {
		return
	}
	id := r.PathValue("id")
	for i, p := range b.posts {
		if p.ID != id {
			continue
		}
		if p.User.ID != me.ID {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Message: "You are not authorized to delete this post"})
			return
		}
		b.posts = append(b.posts[:i], b.posts[i+1:]...)
		writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Post deleted successfully"})
		return
	}
	writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "Post not found"})
}

func (b *Backend) handleProfile(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.requireSession(w, r) == nil {
		return
	}
	u := b.findUserByName(r.PathValue("username"))
	if u == nil {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) handleSuggested(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	me := b.requireSession(w, r)
	if me == nil {
		return
	}
	out := []api.User{}
	for _, u := range b.users {
		if u.ID != me.ID && !me.IsFollowing(u.ID) {
			out = append(out, *u)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) toggleFollowLocked(followerID, targetID string) {
	follower, target := b.users[followerID], b.users[targetID]
	if follower.IsFollowing(targetID) {
		follower.Following = without(follower.Following, targetID)
		target.Followers = without(target.Followers, followerID)
		return
	}
	follower.Following = append(follower.Following, targetID)
	target.Followers = append(target.Followers, followerID)
	b.notifications[targetID] = append(b.notifications[targetID], api.Notification{
		ID: b.newID(), From: *follower, To: targetID, Type: "follow", CreatedAt: time.Now().UTC(),
	})
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (b *Backend) handleFollow(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	me := b.requireSession(w, r)
	if me == nil {
		return
	}
	id := r.PathValue("id")
	if id == me.ID {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "You can't follow/unfollow yourself"})
		return
	}
	if _, ok := b.users[id]; !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "User not found"})
		return
	}
	wasFollowing := me.IsFollowing(id)
	b.toggleFollowLocked(me.ID, id)
	msg := "User followed successfully"
	if wasFollowing {
		msg = "User unfollowed successfully"
	}
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: msg})
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "Invalid request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	me := b.requireSession(w, r)
	if me == nil {
		return
	}
	if r.PathValue("id") != me.ID {
		writeJSON(w, http.StatusForbidden, api.ErrorResponse{Message: "You can only update your own profile"})
		return
	}
	if (req.NewPassword == "") != (req.CurrentPassword == "") {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "Please provide both current password and new password"})
		return
	}
	if req.NewPassword != "" && len(req.NewPassword) < 6 {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "Password must be at least 6 characters long"})
		return
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&me.Fullname, req.Fullname)
	set(&me.Username, req.Username)
	set(&me.Email, req.Email)
	set(&me.Bio, req.Bio)
	set(&me.Link, req.Link)
	set(&me.ProfileImg, req.ProfileImg)
	set(&me.CoverImg, req.CoverImg)

	writeJSON(w, http.StatusOK, me)
}

func (b *Backend) handleNotifications(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	me := b.requireSession(w, r)
	if me == nil {
		return
	}
	out := b.notifications[me.ID]
	if out == nil {
		out = []api.Notification{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleDeleteNotifications(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	me := b.requireSession(w, r)
	if me == nil {
		return
	}
	delete(b.notifications, me.ID)
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Notifications deleted successfully"})
}
