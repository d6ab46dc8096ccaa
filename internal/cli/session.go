package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-admin-session/session"
	"github.com/jrsteele09/go-admin-session/storage"
	"github.com/rs/zerolog/log"
)

var errNotLoggedIn = errors.New("not logged in, run `admin login` first")

// openSession builds a store over the configured storage and restores the
// persisted session. The returned store must be closed.
func (a *app) openSession(ctx context.Context) (*session.Store, session.InitState, error) {
	cfg := a.config()
	repo, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, session.InitEmpty, fmt.Errorf("open %s storage: %w", cfg.GetStorageDriver(), err)
	}

	store, err := session.NewFromConfig(cfg, repo)
	if err != nil {
		_ = repo.Close()
		return nil, session.InitEmpty, err
	}

	state, err := store.Init(ctx)
	if err != nil {
		log.Debug().Err(err).Stringer("state", state).Msg("restoring session")
	}
	if ctx.Err() != nil {
		_ = store.Close()
		return nil, state, ctx.Err()
	}
	return store, state, nil
}

// withSession runs fn against a restored session and closes it afterwards.
func (a *app) withSession(ctx context.Context, requireAuth bool, fn func(*session.Store, session.InitState) error) (err error) {
	store, state, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if requireAuth && !store.IsAuthenticated() {
		return errNotLoggedIn
	}
	return fn(store, state)
}
