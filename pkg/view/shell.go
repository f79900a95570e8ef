package view

import (
	"context"
	"strings"

	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/client"
	"github.com/zfogg/threadline/pkg/logger"
	"github.com/zfogg/threadline/pkg/query"
)

// Routes of the client
const (
	RouteHome          = "/"
	RouteLogin         = "/login"
	RouteSignup        = "/signup"
	RouteNotifications = "/notifications"
	RouteProfilePrefix = "/profile/"
)

// ProfileRoute is the route of a user's profile page
func ProfileRoute(username string) string {
	return RouteProfilePrefix + username
}

// Session resolves the session identity through the cache. A nil user with
// a nil error means nobody is logged in. The check is never retried. The
// shell observes the session from then on, so invalidating it reloads it.
func (a *App) Session(ctx context.Context) (*api.AuthUser, error) {
	a.watchSession.Do(func() {
		a.Store.Subscribe(AuthUserKey, func(e query.Entry) {
			if !e.IsFetching {
				logger.Debug("Session identity updated", "invalidated", e.Invalidated)
			}
		})
	})

	opts := a.queryOptions()
	opts.Retry = 0
	return query.Fetch(ctx, a.Store, AuthUserKey, api.GetMe, opts)
}

// CurrentUser returns the cached session user without loading it
func (a *App) CurrentUser() *api.User {
	me, ok := query.GetData[*api.AuthUser](a.Store, AuthUserKey)
	if !ok || me == nil {
		return nil
	}
	return &me.User
}

// canonicalRoute trims a trailing slash and reports whether path is known
func canonicalRoute(path string) (string, bool) {
	if path == "" {
		return RouteHome, true
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	switch path {
	case RouteHome, RouteLogin, RouteSignup, RouteNotifications:
		return path, true
	}

	if username, ok := strings.CutPrefix(path, RouteProfilePrefix); ok {
		if username != "" && !strings.Contains(username, "/") {
			return path, true
		}
	}
	return path, false
}

// Gate returns where a request for path lands. Unknown routes go home;
// without a session only login and signup are reachable, and with one they
// bounce back home.
func Gate(path string, loggedIn bool) string {
	route, known := canonicalRoute(path)
	if !known {
		route = RouteHome
	}

	public := route == RouteLogin || route == RouteSignup
	switch {
	case !loggedIn && !public:
		return RouteLogin
	case loggedIn && public:
		return RouteHome
	default:
		return route
	}
}

// Navigate resolves the session and applies Gate
func (a *App) Navigate(ctx context.Context, path string) (string, error) {
	me, err := a.Session(ctx)
	if err != nil {
		return "", err
	}
	dest := Gate(path, me != nil)
	if dest != path {
		logger.Debug("Route redirected", "from", path, "to", dest)
	}
	return dest, nil
}

func (a *App) startSession(ctx context.Context, user *api.User) error {
	if a.sessions != nil {
		if err := a.sessions.SaveSession(user); err != nil {
			logger.Warn("Failed to save session", "error", err)
		}
	}
	// Another user's cached data must not leak into this session
	if err := a.Store.Clear(ctx); err != nil {
		logger.Warn("Failed to clear cache", "error", err)
	}
	if err := a.Store.Invalidate(ctx, AuthUserKey); err != nil {
		return err
	}
	_, err := a.Session(ctx)
	return err
}

// Login starts a session and reloads the session identity
func (a *App) Login(ctx context.Context, username, password string) (*api.User, error) {
	user, err := api.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		a.notifyError(err)
		return nil, err
	}
	if err := a.startSession(ctx, user); err != nil {
		return user, err
	}
	a.notifySuccess("Logged in as @" + user.Username)
	return user, nil
}

// Signup creates an account, which also logs it in
func (a *App) Signup(ctx context.Context, req api.SignupRequest) (*api.User, error) {
	user, err := api.Signup(ctx, req)
	if err != nil {
		a.notifyError(err)
		return nil, err
	}
	if err := a.startSession(ctx, user); err != nil {
		return user, err
	}
	a.notifySuccess("Account created successfully")
	return user, nil
}

// Logout ends the session and forgets every cached query
func (a *App) Logout(ctx context.Context) error {
	if err := api.Logout(ctx); err != nil {
		a.notifyError(err)
		return err
	}

	client.ClearSession()
	if a.sessions != nil {
		if err := a.sessions.ClearSession(); err != nil {
			logger.Warn("Failed to remove saved session", "error", err)
		}
	}

	if err := a.Store.Clear(ctx); err != nil {
		logger.Warn("Failed to clear cache", "error", err)
	}
	query.SetData(a.Store, AuthUserKey, (*api.AuthUser)(nil))

	a.notifySuccess("Logged out successfully")
	return nil
}
