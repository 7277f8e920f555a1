// Package app wires together configuration, logging, the API client and the
// local store into a single Deps struct that commands receive at runtime.
package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/derickschaefer/gaflat/internal/config"
	"github.com/derickschaefer/gaflat/internal/gaapi"
	"github.com/derickschaefer/gaflat/internal/logging"
	"github.com/derickschaefer/gaflat/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store is opened lazily by RequireStore.
type Deps struct {
	Config *config.Config
	Client *gaapi.Client
	Store  *store.Store
	Log    *logrus.Logger
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	log := logging.New(cfg.Debug, cfg.Quiet)
	client := gaapi.NewClient(
		cfg.Token,
		cfg.BaseURL,
		cfg.Timeout,
		cfg.Rate,
		log.WithField("component", "gaapi"),
	)
	return &Deps{
		Config: cfg,
		Client: client,
		Log:    log,
	}
}

// RequireStore opens the local database if it is not open yet.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path: set --db, GAFLAT_DB_PATH or db_path in config.json")
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return err
	}
	d.Log.WithField("path", s.Path()).Debug("store opened")
	d.Store = s
	return nil
}

// Close releases the store, if open.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
