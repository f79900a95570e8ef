package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/client"
	"github.com/zfogg/threadline/pkg/config"
	"github.com/zfogg/threadline/pkg/credentials"
	"github.com/zfogg/threadline/pkg/logger"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/query"
	"github.com/zfogg/threadline/pkg/query/persist"
	"github.com/zfogg/threadline/pkg/view"
)

// credentialSessions saves the client's cookie jar next to the config
type credentialSessions struct{}

func (credentialSessions) SaveSession(user *api.User) error {
	if err := credentials.Save(credentials.FromHTTP(client.SessionCookies(), user.ID, user.Username)); err != nil {
		return err
	}
	logger.Info("Session saved", "username", user.Username, "path", config.GetCredentialsPath())
	return nil
}

func (credentialSessions) ClearSession() error {
	if err := credentials.Delete(); err != nil {
		return err
	}
	logger.Info("Session removed")
	return nil
}

// newPersister builds the second-level cache selected by cache.persist
func newPersister(ctx context.Context) (query.Persister, error) {
	ttl := time.Duration(config.GetInt("cache.ttl_seconds")) * time.Second

	switch mode := config.GetString("cache.persist"); mode {
	case "", "none":
		return nil, nil
	case "file":
		return persist.NewFile(config.GetString("cache.dir"), ttl)
	case "redis":
		return persist.NewRedis(ctx, config.GetString("cache.redis_url"), ttl)
	default:
		return nil, fmt.Errorf("unknown cache.persist %q (want file, redis or none)", mode)
	}
}

func newApp(ctx context.Context) (*view.App, error) {
	var opts []query.StoreOption
	p, err := newPersister(ctx)
	if err != nil {
		// The cache still works in memory
		logger.Warn("Query cache persistence disabled", "error", err)
	} else if p != nil {
		opts = append(opts, query.WithPersister(p))
	}

	store := query.NewStore(opts...)
	return view.NewApp(store, output.Toast{},
		view.WithStaleTime(time.Duration(config.GetInt("cache.stale_seconds"))*time.Second),
		view.WithScopedFeedKeys(config.GetBool("cache.scoped_feed_keys")),
		view.WithSessionSaver(credentialSessions{}),
	), nil
}
